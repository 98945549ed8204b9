// Command walcli is an interactive REPL over a write-ahead log.
//
// Usage:
//
//	walcli <file.wal>
//	walcli                      (temporary file, removed on exit)
//
// Commands (all prefixed by .):
//
//	.write <payload>       Append payload, print the assigned LSN
//	.read <lsn>            Print the payload stored at lsn
//	.range <lsn> [count]   Print every payload from lsn (default: to head)
//	.commit <lsn>          Advance the commit head to lsn
//	.truncate <lsn>        Drop every entry from lsn onward
//	.recover               Replay uncommitted entries, rejecting all of them
//	.stats                 Print next LSN, commit head, size, cache stats
//	.report <file>         Atomically write a JSON session summary
//	.help                  Show this help
//	.quit / .exit          Leave the REPL
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	walpkg "github.com/mdurand/ledgerwal/wal"
)

const version = "1.0.0"

// cliConfig is the optional .walcli.jsonc sidecar: JSONC so operators
// can comment their saved sessions, standardized with hujson before
// handing it to encoding/json.
type cliConfig struct {
	CacheCapacity int `json:"cacheCapacity"`
}

func loadConfig(path string) (cliConfig, error) {
	var cfg cliConfig
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	standard, err := hujson.Standardize(raw)
	if err != nil {
		return cfg, fmt.Errorf("walcli: parsing %s: %w", path, err)
	}
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return cfg, fmt.Errorf("walcli: decoding %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", ".walcli.jsonc", "path to an optional JSONC config file")
	flag.Parse()

	fmt.Printf("walcli v%s — interactive write-ahead log shell\n", version)
	fmt.Println("Type .help for help, .quit to quit.")
	fmt.Println()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	path := ""
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	} else {
		f, err := os.CreateTemp("", "walcli_*.wal")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		path = f.Name()
		f.Close()
		os.Remove(path)
		defer os.Remove(path)
		defer os.Remove(path + ".lix")
		fmt.Println("temporary log:", path)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	w, err := walpkg.OpenOrCreate(walpkg.Options{
		Path:          path,
		Writable:      true,
		CacheCapacity: cfg.CacheCapacity,
		Log:           log.WithField("component", "walcli"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open error: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()

	fmt.Printf("log: %s\n\n", w.Name())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("walcli> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ".") {
			fmt.Println("  unrecognized input, type .help")
			continue
		}
		if handleCommand(w, line) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
	}
}

// handleCommand runs one REPL command. It returns true when the REPL
// should exit.
func handleCommand(w *walpkg.WAL, cmd string) bool {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		fmt.Println("goodbye.")
		return true

	case ".help":
		printHelp()

	case ".write":
		payload := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))
		if payload == "" {
			fmt.Println("  usage: .write <payload>")
			break
		}
		lsn, err := w.Write([]byte(payload))
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		fmt.Printf("  lsn=%d\n", lsn)

	case ".read":
		if len(parts) != 2 {
			fmt.Println("  usage: .read <lsn>")
			break
		}
		lsn, err := parseLSN(parts[1])
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		payload, err := w.Read(lsn)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		fmt.Printf("  %s\n", payload)

	case ".range":
		if len(parts) < 2 || len(parts) > 3 {
			fmt.Println("  usage: .range <lsn> [count]")
			break
		}
		first, err := parseLSN(parts[1])
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		var stream *walpkg.Stream
		if len(parts) == 3 {
			count, countErr := strconv.Atoi(parts[2])
			if countErr != nil {
				fmt.Printf("  error: %v\n", countErr)
				break
			}
			stream, err = w.ReadRange(first, count)
		} else {
			stream, err = w.ReadRange(first)
		}
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		lsn := first
		for {
			payload, ok, err := stream.Next()
			if err != nil {
				fmt.Printf("  error: %v\n", err)
				break
			}
			if !ok {
				break
			}
			fmt.Printf("  [%d] %s\n", lsn, payload)
			lsn++
		}

	case ".commit":
		if len(parts) != 2 {
			fmt.Println("  usage: .commit <lsn>")
			break
		}
		lsn, err := parseLSN(parts[1])
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		committed, err := w.Commit(lsn)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		fmt.Printf("  commit head=%d\n", committed)

	case ".truncate":
		if len(parts) != 2 {
			fmt.Println("  usage: .truncate <lsn>")
			break
		}
		lsn, err := parseLSN(parts[1])
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		size, err := w.Truncate(lsn)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		fmt.Printf("  size=%d\n", size)

	case ".recover":
		if err := w.Recover(walpkg.RejectAll()); err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		fmt.Println("  recovery complete")

	case ".stats":
		printStats(w)

	case ".report":
		if len(parts) != 2 {
			fmt.Println("  usage: .report <file>")
			break
		}
		if err := writeReport(w, parts[1]); err != nil {
			fmt.Printf("  error: %v\n", err)
			break
		}
		fmt.Printf("  wrote %s\n", parts[1])

	default:
		fmt.Printf("  unknown command %q, type .help\n", parts[0])
	}
	return false
}

func parseLSN(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid lsn %q: %w", s, err)
	}
	return int32(n), nil
}

func printStats(w *walpkg.WAL) {
	size, _ := w.Size()
	hits, misses, cacheSize, capacity := w.CacheStats()
	fmt.Printf("  next         : %d\n", w.Next())
	fmt.Printf("  commit head  : %d\n", w.CommitHead())
	fmt.Printf("  size         : %d bytes\n", size)
	fmt.Printf("  cache        : %d/%d entries, %d hits, %d misses\n", cacheSize, capacity, hits, misses)
}

type reportDoc struct {
	Path       string `json:"path"`
	Next       int32  `json:"next"`
	CommitHead int32  `json:"commit_head"`
	Size       int64  `json:"size"`
}

// writeReport renders the current WAL state as JSON and writes it
// atomically via natefinch/atomic, so a reader never observes a
// half-written file.
func writeReport(w *walpkg.WAL, path string) error {
	size, err := w.Size()
	if err != nil {
		return err
	}
	doc := reportDoc{
		Path:       w.Name(),
		Next:       w.Next(),
		CommitHead: w.CommitHead(),
		Size:       size,
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(string(body)))
}

func printHelp() {
	fmt.Println(`  .write <payload>       append payload, print the assigned lsn
  .read <lsn>            print the payload stored at lsn
  .range <lsn> [count]   print every payload from lsn
  .commit <lsn>          advance the commit head to lsn
  .truncate <lsn>        drop every entry from lsn onward
  .recover               replay uncommitted entries, rejecting all of them
  .stats                 print next lsn, commit head, size, cache stats
  .report <file>         atomically write a json session summary
  .quit / .exit          leave the repl`)
}
