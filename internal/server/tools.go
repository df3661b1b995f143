package server

// toolSpecs is the MCP tools/list payload. Schemas mirror the transport
// contracts of the routing core.
var toolSpecs = []map[string]interface{}{
	{
		"name":        "get_instructions",
		"description": "Get relevant instruction files by topic or category.",
		"inputSchema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"topic":       map[string]interface{}{"type": "string", "description": "Topic or keyword to search"},
				"category":    map[string]interface{}{"type": "string", "description": "Category to filter by"},
				"exact_match": map[string]interface{}{"type": "boolean", "description": "Match exact filename", "default": false},
			},
		},
	},
	{
		"name":        "search_instructions",
		"description": "Full-text search across all instruction files.",
		"inputSchema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string", "description": "Search query string"},
				"limit": map[string]interface{}{"type": "integer", "description": "Maximum number of results", "default": 10},
			},
			"required": []string{"query"},
		},
	},
	{
		"name":        "route_instructions",
		"description": "Intelligently route to relevant instruction files using keyword, taxonomy, and context matching.",
		"inputSchema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]interface{}{"type": "string", "description": "User message or query"},
				"context": map[string]interface{}{
					"type":        "object",
					"description": "Optional context: files, directories, branch, language, session_id, previous_routing",
				},
				"limit": map[string]interface{}{"type": "integer", "description": "Maximum number of instructions", "default": 5},
			},
			"required": []string{"message"},
		},
	},
	{
		"name":        "reindex_knowledge_base",
		"description": "Manually trigger a knowledge base reindex. Spam-prevented (10s minimum interval) unless forced.",
		"inputSchema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"force": map[string]interface{}{"type": "boolean", "description": "Bypass spam prevention", "default": false},
			},
		},
	},
	{
		"name":        "get_routing_info",
		"description": "Get the active routing engine version and instruction count.",
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
	{
		"name":        "log_user_guidance",
		"description": "Capture user guidance (rules, preferences, corrections) as an observation. Call before other work when a routing result carries a guidance_action directive.",
		"inputSchema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"content":       map[string]interface{}{"type": "string", "description": "The guidance text"},
				"guidance_type": map[string]interface{}{"type": "string", "enum": []string{"explicit", "implicit"}},
				"context":       map[string]interface{}{"type": "object", "description": "Optional context"},
			},
			"required": []string{"content", "guidance_type"},
		},
	},
}
