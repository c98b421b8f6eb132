package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// handleLatestStats returns the collector's most recent sample.
// With ?topic= only that topic's counters are returned.
func (s *Server) handleLatestStats(w http.ResponseWriter, r *http.Request) {
	sample, ok := s.samples.Latest()
	if !ok {
		writeUnavailable(w, "no statistics sample yet")
		return
	}

	if r.URL.Query().Get("topic") == "" {
		writeJSON(w, http.StatusOK, sample)
		return
	}

	name, ok := topicParam(w, r, "topic")
	if !ok {
		return
	}
	ts, found := sample.Snapshot.Topic(name)
	if !found {
		writeNotFound(w, "topic not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": sample.RunID,
		"seq":    sample.Seq,
		"taken":  sample.Taken,
		"topic":  ts,
	})
}

// handleStatsHistory returns stored samples for one topic, newest first.
func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	name, ok := topicParam(w, r, "topic")
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := s.registry.LookupTopic(name); err != nil {
		writeNotFound(w, "topic not found")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "statistics history unavailable")
		return
	}

	entries, err := s.history.History(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("loading stats history failed", "topic", name, "error", err)
		writeInternalError(w, "failed to load statistics history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topic":   name,
		"history": entries,
		"count":   len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit, nil
	}
	return limit, nil
}
