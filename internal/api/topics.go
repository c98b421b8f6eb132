package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/graybus/internal/bus"
)

// maxQueryParamLen caps the length of name and topic query parameters.
const maxQueryParamLen = 256

// handleListTopics returns every topic in declaration order.
func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	topics := s.registry.Topics()
	writeJSON(w, http.StatusOK, map[string]any{
		"topics": topics,
		"count":  len(topics),
	})
}

// handleGetTopic returns one topic by numeric ID.
func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "topic id must be an integer")
		return
	}

	info, err := s.registry.Topic(bus.TopicID(id))
	if err != nil {
		writeNotFound(w, "topic not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleLookupTopic resolves a slash-delimited name, e.g. ?name=/imu/sample.
func (s *Server) handleLookupTopic(w http.ResponseWriter, r *http.Request) {
	name, ok := topicParam(w, r, "name")
	if !ok {
		return
	}

	info, err := s.registry.LookupTopic(name)
	if errors.Is(err, bus.ErrTopicNotFound) {
		writeNotFound(w, "topic not found")
		return
	}
	if err != nil {
		writeInternalError(w, "failed to look up topic")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// topicParam reads a required topic name query parameter, writing a 400
// response and returning false when it is missing or too long.
func topicParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	name := strings.TrimSpace(r.URL.Query().Get(key))
	if name == "" {
		writeBadRequest(w, key+" is required")
		return "", false
	}
	if len(name) > maxQueryParamLen {
		writeBadRequest(w, key+" is too long")
		return "", false
	}
	return name, true
}
