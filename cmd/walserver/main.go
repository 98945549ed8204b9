// Command walserver implements a minimal read-only HTTP status and
// inspection server for a write-ahead log.
// Usage: walserver --addr :8080 --wal data.wal
//
// Endpoints:
//
//	GET /stats         — next LSN, commit head, cache stats (not the log size)
//	GET /entries/{lsn}  — the raw payload stored at that LSN
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/mdurand/ledgerwal/walindex"

	walpkg "github.com/mdurand/ledgerwal/wal"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	path := flag.String("wal", "data.wal", "WAL log file path")
	cacheCap := flag.Int("cache", 256, "entry cache capacity (0 disables)")
	flag.Parse()

	log := logrus.New()

	w, err := walpkg.OpenOrCreate(walpkg.Options{
		Path:          *path,
		Writable:      true,
		CacheCapacity: *cacheCap,
		Log:           log.WithField("component", "walserver"),
	})
	if err != nil {
		log.Fatalf("cannot open wal %q: %v", *path, err)
	}
	defer w.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", statsHandler(w))
	mux.HandleFunc("/entries/", entryHandler(w))

	handler := corsMiddleware(mux)

	log.Printf("walserver listening on %s (wal: %s)", *addr, *path)
	log.Fatal(http.ListenAndServe(*addr, handler))
}

type statsResponse struct {
	Next          int32  `json:"next"`
	CommitHead    int32  `json:"commit_head"`
	CacheHits     uint64 `json:"cache_hits"`
	CacheMisses   uint64 `json:"cache_misses"`
	CacheSize     int    `json:"cache_size"`
	CacheCapacity int    `json:"cache_capacity"`
}

func statsHandler(w *walpkg.WAL) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		hits, misses, size, capacity := w.CacheStats()
		writeJSON(rw, http.StatusOK, statsResponse{
			Next:          w.Next(),
			CommitHead:    w.CommitHead(),
			CacheHits:     hits,
			CacheMisses:   misses,
			CacheSize:     size,
			CacheCapacity: capacity,
		})
	}
}

type entryResponse struct {
	LSN       int32  `json:"lsn"`
	Committed bool   `json:"committed"`
	Payload   string `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
}

func entryHandler(w *walpkg.WAL) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(rw, "GET only", http.StatusMethodNotAllowed)
			return
		}
		lsnStr := strings.TrimPrefix(r.URL.Path, "/entries/")
		lsn, err := strconv.ParseInt(lsnStr, 10, 32)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, entryResponse{Error: "invalid lsn: " + err.Error()})
			return
		}
		payload, err := w.Read(int32(lsn))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, walindex.ErrOutOfRange) {
				status = http.StatusNotFound
			}
			writeJSON(rw, status, entryResponse{LSN: int32(lsn), Error: err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, entryResponse{
			LSN:       int32(lsn),
			Committed: w.IsCommitted(int32(lsn)),
			Payload:   string(payload),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
