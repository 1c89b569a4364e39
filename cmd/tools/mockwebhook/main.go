// mockwebhook sends a signed aggregator-style webhook to a local
// server, for exercising the ingestion path without a real provider.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

type webhookPayload struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/aggregator", "Webhook URL")
	secret := flag.String("secret", os.Getenv("AGGREGATOR_WEBHOOK_SECRET"), "Webhook secret")
	eventID := flag.String("event-id", "evt_"+randomHex(8), "Event ID")
	action := flag.String("action", "payment.updated", "Event action")
	dataID := flag.String("data-id", "", "Remote payment ID (data.id)")
	requestID := flag.String("request-id", "req_"+randomHex(8), "x-request-id header")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and AGGREGATOR_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}
	if *dataID == "" {
		fmt.Fprintf(os.Stderr, "Error: -data-id is required\n")
		os.Exit(1)
	}

	payload := webhookPayload{
		ID:     *eventID,
		Type:   "payment",
		Action: *action,
	}
	payload.Data.ID = *dataID

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", *dataID, *requestID, ts)
	m := hmac.New(sha256.New, []byte(*secret))
	m.Write([]byte(manifest))
	sigHeader := fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(m.Sum(nil)))

	fmt.Printf("x-signature: %s\n", sigHeader)
	fmt.Printf("x-request-id: %s\n", *requestID)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	target := *url + "?data.id=" + *dataID
	fmt.Printf("\nSending to %s...\n", target)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-signature", sigHeader)
	req.Header.Set("x-request-id", *requestID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response: %d %s\n", resp.StatusCode, string(respBody))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(b)
}
