// Command validate performs integrity checks on a threat snapshot document:
// JSON shape, factor registry alignment, value ranges, attack geography, and
// score consistency. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -snapshot testdata/snapshot.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/chaos-meter/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	snapshotPath := flag.String("snapshot", "", "path to a snapshot JSON document")
	flag.Parse()

	if *snapshotPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*snapshotPath); code != 0 {
		os.Exit(code)
	}
}

func run(snapshotPath string) int {
	fmt.Println("=== Threat Snapshot Validation ===")
	fmt.Println()

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read snapshot: %v\n", err)
		return 1
	}

	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateFactors(snap),
		validateAttacks(snap),
		validateLogs(snap),
		validateScore(snap),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Snapshot: %d factors, %d attacks, %d headlines, %d logs\n",
		len(snap.ChaosFactors), len(snap.Attacks), len(snap.Headlines), len(snap.Logs))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Factor registry alignment ──

func validateFactors(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 1: Factor Registry Alignment"}

	registry := domain.Registry()
	for key, live := range snap.ChaosFactors {
		if _, ok := registry[key]; !ok {
			p.errorf("factor %q: not in registry (will be ignored by the engine)", key)
			continue
		}
		if live.Max <= 0 {
			p.errorf("factor %q: max %g is not positive (ineligible for scoring)", key, live.Max)
		}
		if live.Value < 0 {
			p.errorf("factor %q: value %g is negative", key, live.Value)
		}
		if live.Max > 0 && live.Value > live.Max {
			p.errorf("factor %q: value %g exceeds max %g", key, live.Value, live.Max)
		}
	}

	for _, key := range domain.RegistryOrder() {
		if _, ok := snap.ChaosFactors[key]; !ok {
			p.errorf("registry factor %q: missing from snapshot (tile will render inert)", key)
		}
	}
	return p
}

// ── Phase 2: Attack geography ──

func validateAttacks(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 2: Attack Geography"}

	for i, ev := range snap.Attacks {
		if _, ok := domain.ResolveCountry(ev.From); !ok {
			p.errorf("attack %d: origin %q has no map coordinates (event will be dropped)", i, ev.From)
		}
		if _, ok := domain.ResolveCountry(ev.To); !ok {
			p.errorf("attack %d: target %q has no map coordinates (event will be dropped)", i, ev.To)
		}
		if ev.From == ev.To {
			p.errorf("attack %d: origin and target are both %q", i, ev.From)
		}
		if ev.Type == "" {
			p.errorf("attack %d: missing type", i)
		}
	}
	return p
}

// ── Phase 3: Log records ──

func validateLogs(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 3: Log Records"}

	for i, rec := range snap.Logs {
		if rec.Message == "" {
			p.errorf("log %d: empty message", i)
		}
		switch rec.Type {
		case domain.LogInfo, domain.LogWarn, domain.LogError, domain.LogSuccess:
		default:
			p.errorf("log %d: level %q survived normalization", i, rec.Type)
		}
	}
	return p
}

// ── Phase 4: Score consistency ──
// A snapshot-supplied chaos index is authoritative, but a large gap from the
// locally recomputed score usually means the generator and this engine
// disagree about weights.

func validateScore(snap *domain.Snapshot) *phase {
	p := &phase{name: "Phase 4: Score Consistency"}

	local := domain.AggregateScore(domain.MergeSnapshot(snap))
	if local < 0 || local > 100 {
		p.errorf("local aggregate %g outside [0, 100]", local)
	}

	if snap.ChaosIndex == nil {
		return p
	}
	idx := *snap.ChaosIndex
	if idx < 0 || idx > 100 {
		p.errorf("chaosIndex %g outside [0, 100]", idx)
	}
	if math.Abs(idx-local) > 10 {
		p.errorf("chaosIndex %g diverges from local aggregate %g by more than 10 points", idx, local)
	}
	return p
}
