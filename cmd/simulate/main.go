// Command simulate drives N concurrent editors against a running server and
// checks that their buffers converge.
//
// Usage:
//
//	go run ./cmd/simulate -base http://localhost:3000 -editors 3 -edits 20
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"collab-docs-be/pkg/editor"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	infoColor   = color.New(color.FgCyan)
	okColor     = color.New(color.FgGreen, color.Bold)
	failColor   = color.New(color.FgRed, color.Bold)
	editorColor = color.New(color.FgYellow)
)

type apiEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		Id uuid.UUID `json:"id"`
	} `json:"user"`
}

type documentData struct {
	Id uuid.UUID `json:"id"`
}

func main() {
	base := flag.String("base", "http://localhost:3000", "server base URL")
	editors := flag.Int("editors", 3, "number of concurrent editors")
	edits := flag.Int("edits", 20, "edits per editor")
	flag.Parse()

	infoColor.Printf("=== Collaborative Editing Simulation ===\n")
	infoColor.Printf("Server: %s, editors: %d, edits each: %d\n", *base, *editors, *edits)

	// One account per editor, sharing a single document.
	owner, err := register(*base, "owner")
	if err != nil {
		log.Fatalf("register owner: %v", err)
	}
	docID, err := createDocument(*base, owner.Token, "simulation-"+time.Now().Format("150405"))
	if err != nil {
		log.Fatalf("create document: %v", err)
	}
	infoColor.Printf("Document: %s\n\n", docID)

	wsBase := strings.Replace(*base, "http", "ws", 1)

	var wg sync.WaitGroup
	finals := make([]string, *editors)
	errs := make([]error, *editors)

	for i := 0; i < *editors; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			finals[idx], errs[idx] = runEditor(*base, wsBase, docID, idx, *edits)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			failColor.Printf("editor %d failed: %v\n", i, err)
			return
		}
	}

	converged := true
	for i := 1; i < len(finals); i++ {
		if finals[i] != finals[0] {
			converged = false
			failColor.Printf("editor %d diverged:\n  [0] %q\n  [%d] %q\n", i, finals[0], i, finals[i])
		}
	}
	if converged {
		okColor.Printf("\nConverged: all %d editors agree on %d runes\n", len(finals), len([]rune(finals[0])))
	}
}

func runEditor(base, wsBase string, docID uuid.UUID, idx, edits int) (string, error) {
	account, err := register(base, fmt.Sprintf("editor%d", idx))
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := fmt.Sprintf("%s/api/collab/v1/documents/%s/ws", wsBase, docID)
	transport, err := editor.Dial(ctx, wsURL, account.Token)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	defer transport.Close()

	ed := editor.New(account.User.Id, transport, editor.Options{})

	runErr := make(chan error, 1)
	go func() { runErr <- ed.Run(ctx) }()

	// Let the welcome frame land before editing.
	time.Sleep(300 * time.Millisecond)

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(idx)))
	for n := 0; n < edits; n++ {
		contentLen := len([]rune(ed.Content()))
		if contentLen > 4 && rng.Intn(4) == 0 {
			pos := rng.Intn(contentLen - 1)
			length := 1 + rng.Intn(minInt(3, contentLen-pos))
			if err := ed.Delete(pos, length); err != nil {
				return "", fmt.Errorf("delete: %w", err)
			}
		} else {
			pos := 0
			if contentLen > 0 {
				pos = rng.Intn(contentLen + 1)
			}
			text := fmt.Sprintf("[e%d:%d]", idx, n)
			if err := ed.Insert(pos, text); err != nil {
				return "", fmt.Errorf("insert: %w", err)
			}
		}
		time.Sleep(time.Duration(20+rng.Intn(80)) * time.Millisecond)
	}

	editorColor.Printf("editor %d finished editing, waiting for reconciliation\n", idx)

	// Two sync intervals is enough for the reconciliation channel to settle.
	time.Sleep(2 * editor.DefaultSyncInterval)
	cancel()
	<-runErr

	return ed.Content(), nil
}

func register(base, prefix string) (*authData, error) {
	body := map[string]string{
		"email":        fmt.Sprintf("%s-%s@simulation.local", prefix, uuid.NewString()[:8]),
		"password":     "simulation-password",
		"display_name": prefix,
	}
	raw, _ := json.Marshal(body)

	resp, err := http.Post(base+"/api/auth/v1/register", "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("register returned %d", resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	var auth authData
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func createDocument(base, token, title string) (uuid.UUID, error) {
	body := map[string]string{"title": title, "content": "start: "}
	raw, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", base+"/api/document/v1", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("create document returned %d", resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return uuid.Nil, err
	}
	var doc documentData
	if err := json.Unmarshal(env.Data, &doc); err != nil {
		return uuid.Nil, err
	}
	return doc.Id, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
