// Command gensnapshot generates a deterministic threat snapshot fixture. It
// uses the actual factor registry so generated documents stay aligned with
// what the engine parses and scores.
//
// Usage:
//
//	go run ./cmd/gensnapshot -out testdata/snapshot.json -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/chaos-meter/internal/domain"
)

var baseDate = time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

var attackTypes = []string{"ddos", "malware", "phishing", "ransomware", "botnet"}

var headlines = []string{
	"Ransomware group claims three new manufacturing victims",
	"Zero-day in widely deployed VPN appliance under active exploitation",
	"Botnet command infrastructure sinkholed in joint operation",
	"Credential stuffing wave hits regional banks",
	"New malware loader spreading through malvertising",
	"X-class solar flare forecast raises radio blackout risk",
	"Dark web exchange exit scam wipes out escrow balances",
}

var logMessages = []struct {
	level   domain.LogLevel
	message string
}{
	{domain.LogInfo, "snapshot feed refreshed"},
	{domain.LogWarn, "botnet telemetry spike detected"},
	{domain.LogError, "ransomware leak site updated"},
	{domain.LogSuccess, "malware distribution domain taken down"},
	{domain.LogInfo, "CVE feed ingested"},
	{domain.LogWarn, "exploit kit traffic rising"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the snapshot JSON fixture")
	seed := flag.Uint64("seed", 42, "rng seed for reproducible output")
	attacks := flag.Int("attacks", 12, "number of attack events to generate")
	withIndex := flag.Bool("with-index", true, "include an authoritative chaosIndex")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	snap := generate(rng, *attacks, *withIndex)

	if err := writeJSON(*out, snap); err != nil {
		return fmt.Errorf("writing snapshot fixture: %w", err)
	}
	log.Printf("wrote snapshot fixture: %s (%d factors, %d attacks)",
		*out, len(snap.ChaosFactors), len(snap.Attacks))
	return nil
}

func generate(rng *rand.Rand, attackCount int, withIndex bool) *domain.Snapshot {
	factors := make(map[string]domain.FactorLive, len(domain.Registry()))
	for _, key := range domain.RegistryOrder() {
		max := factorMax(key)
		factors[key] = domain.FactorLive{
			Value:   rng.Float64() * max,
			Max:     max,
			Reverse: key == "fear",
		}
	}

	codes := domain.CountryCodes()
	events := make([]domain.AttackEvent, 0, attackCount)
	for i := 0; i < attackCount; i++ {
		from := codes[rng.IntN(len(codes))]
		to := codes[rng.IntN(len(codes))]
		for to == from {
			to = codes[rng.IntN(len(codes))]
		}
		events = append(events, domain.AttackEvent{
			From:      from,
			To:        to,
			Type:      attackTypes[rng.IntN(len(attackTypes))],
			Intensity: 1 + rng.IntN(10),
			Source:    "synthetic",
		})
	}

	logs := make([]domain.LogRecord, 0, len(logMessages))
	for i, lm := range logMessages {
		logs = append(logs, domain.LogRecord{
			Type:      lm.level,
			Message:   lm.message,
			Timestamp: baseDate.Add(-time.Duration(len(logMessages)-i) * time.Minute),
			Source:    "synthetic",
		})
	}

	detailed := make([]domain.Headline, 0, len(headlines))
	for _, h := range headlines {
		detailed = append(detailed, domain.Headline{Title: h, Source: "synthetic"})
	}

	snap := &domain.Snapshot{
		LastUpdated:       baseDate,
		UpdateInterval:    300,
		DataQuality:       "synthetic",
		ChaosFactors:      factors,
		Attacks:           events,
		Headlines:         headlines,
		HeadlinesDetailed: detailed,
		Logs:              logs,
		Stats: domain.Stats{
			TotalCVEs:          240 + rng.IntN(60),
			CriticalCVEs:       12 + rng.IntN(8),
			ActiveMalwareURLs:  900 + rng.IntN(300),
			BotnetIPs:          15000 + rng.IntN(5000),
			RansomwareVictims:  80 + rng.IntN(40),
			ActiveRansomGroups: 30 + rng.IntN(10),
		},
		Sources: []domain.SourceStatus{
			{Name: "nvd", Status: "ok", Type: "cve"},
			{Name: "urlhaus", Status: "ok", Type: "malware"},
			{Name: "feodo", Status: "ok", Type: "botnet"},
			{Name: "ransomwatch", Status: "degraded", Type: "ransomware"},
		},
	}

	if withIndex {
		idx := domain.AggregateScore(domain.MergeSnapshot(snap))
		snap.ChaosIndex = &idx
	}
	return snap
}

// factorMax mirrors the upstream generator's scale per factor.
func factorMax(key string) float64 {
	switch key {
	case "solar":
		return 9
	case "zeroday":
		return 20
	case "malware":
		return 500
	case "botnet":
		return 10
	case "ransom":
		return 500
	case "crypto":
		return 20
	case "fear":
		return 100
	default:
		return 100
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
