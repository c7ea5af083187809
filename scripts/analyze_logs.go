package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// LogStats summarizes one day of checkout-core logs.
type LogStats struct {
	Requests            int
	ClientErrors        int
	ServerErrors        int
	Conflicts           int
	ReserveRejections   int
	InvariantViolations int
	SweepReleases       int
	SweepRestored       int
	SweepFailures       int
	RejectedInternal    int
	UnrecordedCoupons   int
	TotalErrors         int
	RouteLatency        map[string]time.Duration
	RouteHits           map[string]int
	RejectedUnits       map[string]int
	ErrorPatterns       map[string]int
}

func newLogStats() *LogStats {
	return &LogStats{
		RouteLatency:  make(map[string]time.Duration),
		RouteHits:     make(map[string]int),
		RejectedUnits: make(map[string]int),
		ErrorPatterns: make(map[string]int),
	}
}

// logLine is the subset of zerolog fields the report reads.
type logLine struct {
	Level    string  `json:"level"`
	Message  string  `json:"message"`
	Method   string  `json:"method"`
	Path     string  `json:"path"`
	Status   int     `json:"status"`
	Duration float64 `json:"duration"` // milliseconds
}

var (
	rejectedUnit = regexp.MustCompile(`wants \d+ of (\S+),`)
	sweepCounts  = regexp.MustCompile(`sweep released (\d+) expired holds, restored (\d+) units`)
	digits       = regexp.MustCompile(`\d+`)
)

func main() {
	day := flag.String("date", time.Now().Format("2006-01-02"), "log date (YYYY-MM-DD)")
	logDir := flag.String("dir", "./logs", "log directory")
	flag.Parse()

	stats := newLogStats()
	for _, kind := range []string{"info", "error"} {
		path := filepath.Join(*logDir, fmt.Sprintf("%s-%s.log", kind, *day))
		file, err := os.Open(path)
		if err != nil {
			fmt.Printf("Error opening log file %s: %v\n", path, err)
			continue
		}
		analyze(file, stats)
		file.Close()
	}

	printReport(os.Stdout, stats)
}

func analyze(r io.Reader, stats *LogStats) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var l logLine
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			continue
		}
		record(l, stats)
	}
}

func record(l logLine, stats *LogStats) {
	if l.Message == "request" {
		stats.Requests++
		route := l.Method + " " + l.Path
		stats.RouteHits[route]++
		stats.RouteLatency[route] += time.Duration(l.Duration * float64(time.Millisecond))
		switch {
		case l.Status >= 500:
			stats.ServerErrors++
		case l.Status == 409:
			stats.Conflicts++
			stats.ClientErrors++
		case l.Status >= 400:
			stats.ClientErrors++
		}
		return
	}

	if l.Level == "error" {
		stats.TotalErrors++
		stats.ErrorPatterns[errorPattern(l.Message)]++
	}

	switch {
	case strings.HasPrefix(l.Message, "reserve rejected"):
		stats.ReserveRejections++
		if m := rejectedUnit.FindStringSubmatch(l.Message); m != nil {
			stats.RejectedUnits[m[1]]++
		}
	case strings.HasPrefix(l.Message, "invariant violation"):
		stats.InvariantViolations++
	case strings.HasPrefix(l.Message, "sweep released"):
		if m := sweepCounts.FindStringSubmatch(l.Message); m != nil {
			var released, restored int
			fmt.Sscan(m[1], &released)
			fmt.Sscan(m[2], &restored)
			stats.SweepReleases += released
			stats.SweepRestored += restored
		}
	case strings.HasPrefix(l.Message, "sweep: release"):
		stats.SweepFailures++
	case strings.HasPrefix(l.Message, "Rejected internal call"):
		stats.RejectedInternal++
	case strings.Contains(l.Message, "was not recorded"):
		stats.UnrecordedCoupons++
	}
}

// errorPattern keeps the text before the first colon with numbers masked, so
// the same failure on different ids groups together.
func errorPattern(msg string) string {
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	return digits.ReplaceAllString(strings.TrimSpace(msg), "N")
}

func printReport(w io.Writer, stats *LogStats) {
	fmt.Fprintln(w, "\n=== Checkout Log Analysis Report ===")
	fmt.Fprintln(w, "Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\n1. HTTP:")
	fmt.Fprintf(w, "   Requests: %d\n", stats.Requests)
	fmt.Fprintf(w, "   4xx: %d (409 conflicts: %d)\n", stats.ClientErrors, stats.Conflicts)
	fmt.Fprintf(w, "   5xx: %d\n", stats.ServerErrors)
	fmt.Fprintf(w, "   Rejected internal calls: %d\n", stats.RejectedInternal)

	fmt.Fprintln(w, "\n2. Reservations:")
	fmt.Fprintf(w, "   Rejected for stock: %d\n", stats.ReserveRejections)
	fmt.Fprintf(w, "   Swept holds: %d (units restored: %d)\n", stats.SweepReleases, stats.SweepRestored)
	fmt.Fprintf(w, "   Sweep release failures: %d\n", stats.SweepFailures)
	fmt.Fprintf(w, "   Invariant violations: %d\n", stats.InvariantViolations)
	fmt.Fprintf(w, "   Unrecorded coupon redemptions: %d\n", stats.UnrecordedCoupons)

	fmt.Fprintln(w, "\n3. Most Contended Units:")
	printTop(w, stats.RejectedUnits, 5, "rejections")

	fmt.Fprintln(w, "\n4. Slowest Routes (mean):")
	printSlowRoutes(w, stats, 5)

	fmt.Fprintln(w, "\n5. Most Common Errors:")
	fmt.Fprintf(w, "   Total Errors: %d\n", stats.TotalErrors)
	printTop(w, stats.ErrorPatterns, 5, "occurrences")
}

type counted struct {
	key   string
	count int
}

func topN(m map[string]int, limit int) []counted {
	var list []counted
	for k, v := range m {
		list = append(list, counted{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func printTop(w io.Writer, m map[string]int, limit int, unit string) {
	for _, c := range topN(m, limit) {
		fmt.Fprintf(w, "   %s: %d %s\n", c.key, c.count, unit)
	}
}

func printSlowRoutes(w io.Writer, stats *LogStats, limit int) {
	type routeMean struct {
		route string
		mean  time.Duration
	}
	var list []routeMean
	for route, hits := range stats.RouteHits {
		list = append(list, routeMean{route, stats.RouteLatency[route] / time.Duration(hits)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].mean > list[j].mean })
	for i, r := range list {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "   %s: %s\n", r.route, r.mean)
	}
}
