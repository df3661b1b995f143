// Package server implements the stdio JSON-RPC adapter over the routing
// core: tool dispatch, resource reads, event capture, and routing-time
// discovery promotion.
package server

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"pongogo/internal/capture"
	"pongogo/internal/config"
	"pongogo/internal/db"
	"pongogo/internal/discovery"
	"pongogo/internal/engine"
	"pongogo/internal/logging"
	"pongogo/internal/reload"
)

// Server wires the routing core behind the transport surface.
type Server struct {
	cfg        *config.Config
	controller *reload.Controller
	database   *db.Database
	discovery  *discovery.System
	sessionID  string
}

// New builds a server over an initialized controller. database and
// discoverySystem may be nil (core-only operation without persistence).
func New(cfg *config.Config, controller *reload.Controller, database *db.Database, discoverySystem *discovery.System) *Server {
	return &Server{
		cfg:        cfg,
		controller: controller,
		database:   database,
		discovery:  discoverySystem,
		sessionID:  uuid.NewString(),
	}
}

func (s *Server) handleInitialize() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]interface{}{
			"name":    "pongogo-knowledge",
			"version": config.Version(),
		},
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
		},
	}
}

func (s *Server) handleToolsList() map[string]interface{} {
	return map[string]interface{}{"tools": toolSpecs}
}

func (s *Server) handleToolCall(name string, args map[string]interface{}) map[string]interface{} {
	switch name {
	case "get_instructions":
		return toolResult(s.getInstructions(args))
	case "search_instructions":
		return toolResult(s.searchInstructions(args))
	case "route_instructions":
		return toolResult(s.routeInstructions(args))
	case "reindex_knowledge_base":
		return toolResult(s.reindexKnowledgeBase(args))
	case "get_routing_info":
		return toolResult(s.routingInfo())
	case "log_user_guidance":
		return toolResult(s.logUserGuidance(args))
	default:
		return toolResult(map[string]interface{}{"error": "unknown tool: " + name})
	}
}

// getInstructions serves topic/category lookup with optional exact match.
func (s *Server) getInstructions(args map[string]interface{}) map[string]interface{} {
	topic, _ := args["topic"].(string)
	category, _ := args["category"].(string)
	exactMatch, _ := args["exact_match"].(bool)
	query := map[string]interface{}{"topic": topic, "category": category, "exact_match": exactMatch}

	store, _ := s.controller.Snapshot()

	switch {
	case exactMatch && topic != "" && category != "":
		inst := store.Get(category, topic)
		if inst == nil {
			return map[string]interface{}{
				"instructions": []interface{}{},
				"count":        0,
				"query":        query,
				"error":        "Instruction not found: " + category + "/" + topic,
			}
		}
		return map[string]interface{}{
			"instructions": []interface{}{inst.Map()},
			"count":        1,
			"query":        query,
		}

	case category != "":
		instructions := store.ByCategory(category)
		var out []interface{}
		for _, inst := range instructions {
			if topic != "" {
				topicLower := strings.ToLower(topic)
				if !strings.Contains(strings.ToLower(inst.ID), topicLower) &&
					!strings.Contains(strings.ToLower(inst.Content), topicLower) {
					continue
				}
			}
			out = append(out, inst.Map())
		}
		return map[string]interface{}{"instructions": out, "count": len(out), "query": query}

	case topic != "":
		results := store.Search(topic, 0)
		out := make([]interface{}, 0, len(results))
		for _, r := range results {
			out = append(out, r.Instruction.Map())
		}
		return map[string]interface{}{"instructions": out, "count": len(out), "query": query}

	default:
		all := store.All()
		out := make([]interface{}, 0, len(all))
		for _, inst := range all {
			out = append(out, inst.Map())
		}
		return map[string]interface{}{"instructions": out, "count": len(out), "query": map[string]interface{}{"all": true}}
	}
}

// searchInstructions serves full-text search with snippets.
func (s *Server) searchInstructions(args map[string]interface{}) map[string]interface{} {
	query, _ := args["query"].(string)
	limit := intArg(args, "limit", 10)

	store, _ := s.controller.Snapshot()
	results := store.Search(query, limit)

	out := make([]interface{}, 0, len(results))
	for _, r := range results {
		m := r.Instruction.Map()
		m["search_score"] = r.Score
		m["search_matches"] = r.Matches
		out = append(out, m)
	}
	return map[string]interface{}{"results": out, "count": len(out), "query": query}
}

// routeInstructions runs the routing pipeline, captures the event, and
// checks discoveries for auto-promotion.
func (s *Server) routeInstructions(args map[string]interface{}) map[string]interface{} {
	message, _ := args["message"].(string)
	limit := intArg(args, "limit", s.cfg.Routing.LimitDefault)
	rawCtx, _ := args["context"].(map[string]interface{})
	ctx := engine.ContextFromMap(rawCtx)

	_, router := s.controller.Snapshot()

	start := time.Now()
	result := router.Route(message, ctx, limit)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	resultMap := result.Map()
	resultMap["routing_engine_version"] = router.Version()

	// Capture the routing event. Non-blocking: failures are logged and the
	// response is unaffected.
	if s.database != nil {
		routedIDs := make([]string, 0, len(result.Instructions))
		scores := make(map[string]int, len(result.Instructions))
		for _, si := range result.Instructions {
			routedIDs = append(routedIDs, si.Instruction.ID)
			scores[si.Instruction.ID] = si.Score
		}
		sessionID := s.sessionID
		if ctx != nil && ctx.SessionID != "" {
			sessionID = ctx.SessionID
		}
		capture.StoreRoutingEvent(s.database, &db.Event{
			UserMessage:        message,
			RoutedInstructions: routedIDs,
			RoutingScores:      scores,
			EngineVersion:      router.Version(),
			SessionID:          sessionID,
			Context:            rawCtx,
			RoutingLatencyMs:   latencyMs,
		})
	}

	// Discovery auto-promotion: promoted files are picked up by the next
	// reload cycle; this request does not wait for it.
	if s.discovery != nil {
		keywords := analysisKeywords(result.Analysis, message)
		if promoted := s.discovery.CheckAndPromote(keywords); len(promoted) > 0 {
			resultMap["promoted_discoveries"] = promoted
			logging.Server("Auto-promoted %d discoveries", len(promoted))
		}
	}

	return resultMap
}

// reindexKnowledgeBase triggers the manual reload path.
func (s *Server) reindexKnowledgeBase(args map[string]interface{}) *reload.ReloadResult {
	force, _ := args["force"].(bool)
	return s.controller.Reindex(force)
}

// routingInfo reports the active engine and store size.
func (s *Server) routingInfo() map[string]interface{} {
	store, router := s.controller.Snapshot()
	return map[string]interface{}{
		"success":           true,
		"engine":            router.Version(),
		"description":       router.Description(),
		"instruction_count": store.Count(),
	}
}

// logUserGuidance stores a guidance observation. This is the tool named by
// the guidance_action directive; the caller invokes it before other work.
func (s *Server) logUserGuidance(args map[string]interface{}) map[string]interface{} {
	content, _ := args["content"].(string)
	guidanceType, _ := args["guidance_type"].(string)
	rawCtx, _ := args["context"].(map[string]interface{})

	if content == "" {
		return map[string]interface{}{"success": false, "error": "content is required"}
	}
	if s.database == nil {
		return map[string]interface{}{"success": false, "error": "persistence unavailable"}
	}

	obsType := db.ObservationGuidanceImplicit
	gt := db.GuidanceType(guidanceType)
	if guidanceType == "explicit" {
		obsType = db.ObservationGuidanceExplicit
		gt = db.GuidanceTypeExplicit
	}

	id, err := s.database.StoreObservation(&db.Observation{
		Type:          obsType,
		Content:       content,
		GuidanceType:  gt,
		ShouldPersist: true,
		SessionID:     s.sessionID,
		Context:       rawCtx,
	})
	if err != nil || id == 0 {
		logging.Get(logging.CategoryServer).Warn("Failed to store guidance observation: %v", err)
		return map[string]interface{}{"success": false, "error": "failed to store observation"}
	}

	return map[string]interface{}{"success": true, "observation_id": id}
}

// handleResourceRead serves instruction://pongogo/{category}/{name}.
func (s *Server) handleResourceRead(uri string) (interface{}, *rpcError) {
	const prefix = "instruction://pongogo/"
	if !strings.HasPrefix(uri, prefix) {
		return nil, &rpcError{Code: codeInvalidParams, Message: "unsupported resource URI: " + uri}
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, prefix), "/", 2)
	if len(parts) != 2 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "resource URI must be instruction://pongogo/{category}/{name}"}
	}

	store, _ := s.controller.Snapshot()
	inst := store.Get(parts[0], parts[1])
	if inst == nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Instruction not found: " + parts[0] + "/" + parts[1]}
	}

	return map[string]interface{}{
		"contents": []map[string]interface{}{
			{"uri": uri, "mimeType": "text/markdown", "text": inst.Content},
		},
	}, nil
}

// analysisKeywords pulls the extracted keywords from the routing analysis,
// falling back to a direct extraction from the message.
func analysisKeywords(analysis map[string]interface{}, message string) []string {
	if analysis != nil {
		if kw, ok := analysis["keywords_extracted"].([]string); ok {
			return kw
		}
	}
	var keywords []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(message)) {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) > 2 && !seen[w] {
			keywords = append(keywords, w)
			seen[w] = true
			if len(keywords) >= 20 {
				break
			}
		}
	}
	return keywords
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
