// Command smoke probes a running results API instance and verifies each
// target endpoint answers with the expected status. Intended as a fast
// post-deploy check; it sends gateway identity headers so guarded routes can
// be exercised without a real upstream.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Expect   int               `json:"expect"`
	Critical bool              `json:"critical"`
	Headers  map[string]string `json:"headers,omitempty"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	OK       bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base        string
		targetsPath string
		actorID     string
		actorRole   string
		reviewer    bool
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Results API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&actorID, "actor", "smoke-admin", "Actor ID sent on guarded routes")
	flag.StringVar(&actorRole, "role", "admin", "Actor role sent on guarded routes")
	flag.BoolVar(&reviewer, "reviewer", true, "Mark the actor as a reviewer")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		probes   []probe
		breaking int
		soft     int
	)

	for _, t := range targets {
		p := probeTarget(client, base, t, actorID, actorRole, reviewer)
		if !p.OK {
			if t.Critical {
				breaking++
			} else {
				soft++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Critical failures: %d, Soft failures: %d\n", breaking, soft)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probeTarget(client *http.Client, base string, tgt target, actorID, actorRole string, reviewer bool) probe {
	p := probe{Target: tgt}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		p.Error = err
		return p
	}
	req.Header.Set("X-Actor-ID", actorID)
	req.Header.Set("X-Actor-Role", actorRole)
	if reviewer {
		req.Header.Set("X-Actor-Reviewer", "true")
	}
	for k, v := range tgt.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Error = err
		return p
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	p.Status = resp.StatusCode
	expect := tgt.Expect
	if expect == 0 {
		expect = http.StatusOK
	}
	p.OK = p.Status == expect
	return p
}

func printReport(probes []probe) {
	for _, p := range probes {
		state := "ok"
		detail := fmt.Sprintf("status=%d (%s)", p.Status, p.Duration.Round(time.Millisecond))
		if p.Error != nil {
			state = "error"
			detail = p.Error.Error()
		} else if !p.OK {
			state = "fail"
		}
		fmt.Printf("%-5s %-6s %-45s %s\n", state, strings.ToUpper(p.Target.Method), p.Target.Path, detail)
	}
}
