package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/audit"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/capability"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/channel"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/keys"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/nonce"
	"github.com/goodspeed-apps/StatusClaw-sub001/pkg/storage"
)

// DeployCommand is the payload the orchestrator sends to an executor.
type DeployCommand struct {
	Task    string `json:"task"`
	Service string `json:"service"`
}

// This example demonstrates signed agent-to-agent messaging with replay
// protection and a tamper-evident audit trail.
func main() {
	fmt.Println("=== Secure Channel Example ===")
	fmt.Println()

	ctx := context.Background()

	// Step 1: Open the shared store and register two agents.
	fmt.Println("Step 1: Registering agents...")

	dir, err := os.MkdirTemp("", "secure-channel-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := storage.Open(filepath.Join(dir, "channel.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	registry := keys.NewRegistry(db)

	atlasKeys, err := keys.GenerateKeyPair()
	if err != nil {
		log.Fatal(err)
	}
	backendKeys, err := keys.GenerateKeyPair()
	if err != nil {
		log.Fatal(err)
	}

	if _, err := registry.RegisterAgentKey("atlas", atlasKeys.PublicKey, map[string]string{"role": "orchestrator"}); err != nil {
		log.Fatal(err)
	}
	if _, err := registry.RegisterAgentKey("backend_eng", backendKeys.PublicKey, map[string]string{"role": "executor"}); err != nil {
		log.Fatal(err)
	}

	fmt.Println("  ✓ atlas registered (orchestrator)")
	fmt.Println("  ✓ backend_eng registered (executor)")
	fmt.Println()

	// Step 2: Open a channel for each agent. The nonce cache and audit
	// log are shared infrastructure.
	fmt.Println("Step 2: Opening secure channels...")

	replay := nonce.NewCache()
	auditLog := audit.NewLog(db)

	atlas, err := channel.New(registry, replay, auditLog, channel.Config{
		AgentID:    "atlas",
		PrivateKey: atlasKeys.PrivateKey,
		Role:       capability.RoleOrchestrator,
	})
	if err != nil {
		log.Fatal(err)
	}

	backend, err := channel.New(registry, replay, auditLog, channel.Config{
		AgentID:    "backend_eng",
		PrivateKey: backendKeys.PrivateKey,
		Role:       capability.RoleExecutor,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("  ✓ channels open for atlas and backend_eng")
	fmt.Println()

	// Step 3: atlas sends a signed command.
	fmt.Println("Step 3: atlas sending a COMMAND...")

	payload, _ := json.Marshal(DeployCommand{Task: "deploy", Service: "status-api"})
	msg, err := atlas.Send("backend_eng", capability.MessageCommand, payload)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  Correlation ID: %s\n", msg.CorrelationID)
	fmt.Printf("  Nonce:          %s\n", msg.Nonce)
	fmt.Printf("  Signature:      %.32s...\n", msg.Signature)
	fmt.Println()

	// Step 4: backend_eng validates and accepts it.
	fmt.Println("Step 4: backend_eng receiving...")

	result, err := backend.Receive(ctx, msg)
	if err != nil {
		log.Fatal(err)
	}
	if result.Valid {
		var cmd DeployCommand
		_ = json.Unmarshal(result.Data, &cmd)
		fmt.Printf("  ✓ message accepted: task=%s service=%s\n", cmd.Task, cmd.Service)
	} else {
		fmt.Printf("  ✗ message rejected: %s\n", result.Error)
	}
	fmt.Println()

	// Step 5: the same message replayed is rejected.
	fmt.Println("Step 5: Replaying the same message...")

	result, err = backend.Receive(ctx, msg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  ✗ replay rejected: %s\n", result.Error)
	fmt.Println()

	// Step 6: an executor cannot originate commands.
	fmt.Println("Step 6: backend_eng attempting to send a COMMAND...")

	if _, err := backend.Send("atlas", capability.MessageCommand, payload); err != nil {
		fmt.Printf("  ✗ send refused: %v\n", err)
	}
	fmt.Println()

	// Step 7: every receive outcome is in the audit trail.
	fmt.Println("Step 7: Inspecting the audit trail...")

	stats := backend.GetStats()
	fmt.Printf("  backend_eng stats: received=%d authFailures=%d\n",
		stats.MessagesReceived, stats.AuthFailures)

	date := (&audit.Entry{Timestamp: time.Now()}).PartitionDate()
	verified, err := auditLog.VerifyChecksum(ctx, date)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  partition %s integrity verified: %v\n", date, verified)
	fmt.Println()

	fmt.Println("=== Example Complete ===")
}
