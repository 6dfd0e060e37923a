package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	verdant "github.com/verdanthq/verdant"
)

// JSON-RPC 2.0 types

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// server is the Verdant MCP server.
type server struct {
	engine  *verdant.Engine
	userID  int64
	scanner *scanner // non-nil when --scan is enabled
}

func newServer(engine *verdant.Engine, userID int64) *server {
	return &server{engine: engine, userID: userID}
}

// resolveUser maps a speaker name to a user ID.
// If speaker is empty or unknown, it returns the default user ID.
func (s *server) resolveUser(speaker string) int64 {
	if speaker == "" {
		return s.userID
	}
	user, err := s.engine.GetUserByName(speaker)
	if err != nil || user.ID == 0 {
		return s.userID
	}
	return user.ID
}

// run starts the MCP server, reading from stdin and writing to stdout.
func (s *server) run() error {
	log.SetOutput(os.Stderr)
	log.Printf("verdant-mcp starting (user=%d)", s.userID)

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 1024*1024), 1024*1024)

	for in.Scan() {
		line := in.Bytes()

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("invalid json-rpc: %v", err)
			continue
		}

		// Notifications have no ID — don't respond
		if req.ID == nil || string(req.ID) == "null" {
			log.Printf("notification: %s", req.Method)
			continue
		}

		resp := s.handleRequest(req)
		respBytes, _ := json.Marshal(resp)
		fmt.Fprintf(os.Stdout, "%s\n", respBytes)
	}

	return in.Err()
}

func (s *server) handleRequest(req jsonRPCRequest) jsonRPCResponse {
	resp := jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "verdant",
				"version": "0.1.0",
			},
		}
	case "tools/list":
		resp.Result = s.handleToolsList()
	case "tools/call":
		resp.Result = s.handleToolsCall(req.Params)
	case "ping":
		resp.Result = map[string]any{}
	default:
		resp.Error = &rpcError{
			Code:    -32601,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		}
	}

	return resp
}

func (s *server) handleToolsList() any {
	return map[string]any{
		"tools": []map[string]any{
			{
				"name":        "garden_list",
				"description": "List the user's garden: every plant they are growing with nickname, location, quantity, watering state, and active schedule ID.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
				},
			},
			{
				"name":        "garden_add",
				"description": "Add a plant from the catalog to the user's garden. Use plants_list to find the plant ID.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"plant_id": map[string]any{
							"type":        "integer",
							"description": "Catalog plant ID to add",
						},
						"nickname": map[string]any{
							"type":        "string",
							"description": "Optional nickname for this plant",
						},
						"location": map[string]any{
							"type":        "string",
							"description": "Where the plant lives (e.g. balcony, windowsill)",
						},
						"quantity": map[string]any{
							"type":        "integer",
							"description": "How many of this plant (default 1)",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"plant_id"},
				},
			},
			{
				"name":        "garden_water",
				"description": "Record that a garden plant was watered just now. Updates the last-watered timestamp and the assistant's care memory.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item_id": map[string]any{
							"type":        "integer",
							"description": "The garden item ID to water",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"item_id"},
				},
			},
			{
				"name":        "garden_remove",
				"description": "Remove a plant from the user's garden. Use garden_list to find the item ID.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item_id": map[string]any{
							"type":        "integer",
							"description": "The garden item ID to remove",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"item_id"},
				},
			},
			{
				"name":        "plants_list",
				"description": "List the plant catalog: names, types, growing durations, and care needs.",
				"inputSchema": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			{
				"name":        "schedule_create",
				"description": "Generate a day-by-day AI care schedule for a garden plant. Covers the plant's full growing duration with daily task lists.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item_id": map[string]any{
							"type":        "integer",
							"description": "The garden item ID to schedule",
						},
						"stage": map[string]any{
							"type":        "string",
							"description": "Optional growth stage hint (e.g. seedling, vegetative, flowering)",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"item_id"},
				},
			},
			{
				"name":        "schedule_extend",
				"description": "Extend an existing care schedule to cover the remaining growing days. No-op when the schedule already covers the full duration.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"schedule_id": map[string]any{
							"type":        "integer",
							"description": "The schedule ID to extend",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"schedule_id"},
				},
			},
			{
				"name":        "schedule_show",
				"description": "Show a care schedule's day-by-day task lists.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"schedule_id": map[string]any{
							"type":        "integer",
							"description": "The schedule ID to show",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"schedule_id"},
				},
			},
			{
				"name":        "task_toggle",
				"description": "Mark a schedule task complete or incomplete by day number and task position. Use schedule_show to see the tasks first.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"schedule_id": map[string]any{
							"type":        "integer",
							"description": "The schedule ID",
						},
						"day": map[string]any{
							"type":        "integer",
							"description": "Day number within the schedule (1-based)",
						},
						"task_index": map[string]any{
							"type":        "integer",
							"description": "Task position within the day (0-based)",
						},
						"completed": map[string]any{
							"type":        "boolean",
							"description": "true to mark complete, false to unmark",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"schedule_id", "day", "task_index", "completed"},
				},
			},
			{
				"name":        "notifications",
				"description": "Get the user's unread notifications: due care tasks, schedule reminders, and garden updates.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum number of notifications to return (default 20)",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
				},
			},
			{
				"name":        "notifications_clear",
				"description": "Mark all of the user's notifications as read. Call this after presenting notifications to the user.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
				},
			},
			{
				"name":        "scan_now",
				"description": "Trigger an immediate due-today scan: walk every active schedule and generate notifications for tasks due today. Only available when the server is running with --scan. Use this when the user asks what needs doing right now.",
				"inputSchema": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			{
				"name":        "chat",
				"description": "Ask the gardening assistant a question. The reply is grounded in the user's garden, schedules, journals, and preferences, and the exchange is saved to chat history.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"message": map[string]any{
							"type":        "string",
							"description": "The user's message",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"message"},
				},
			},
			{
				"name":        "context_get",
				"description": "Get the user's full gardening context as structured JSON: profile, garden, schedules, journals, alerts, detections, recent chat, and remembered preferences.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
				},
			},
			{
				"name":        "journals_list",
				"description": "List the user's growth journals with entry counts and latest entry dates.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
				},
			},
			{
				"name":        "journal_add",
				"description": "Add a dated entry to a growth journal. A journal is created automatically for the (user, plant) pair on first use.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Journal title, used when the journal is first created",
						},
						"plant_id": map[string]any{
							"type":        "integer",
							"description": "Optional catalog plant ID this journal tracks",
						},
						"notes": map[string]any{
							"type":        "string",
							"description": "Free-text observations for this entry",
						},
						"height_cm": map[string]any{
							"type":        "number",
							"description": "Optional measured height in centimeters",
						},
						"width_cm": map[string]any{
							"type":        "number",
							"description": "Optional measured width in centimeters",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"notes"},
				},
			},
			{
				"name":        "preference_set",
				"description": "Remember a gardening preference for the user (e.g. organic_only, preferred_watering_time). Remembered preferences shape future assistant replies.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"key": map[string]any{
							"type":        "string",
							"description": "Preference key to remember",
						},
						"value": map[string]any{
							"type":        "string",
							"description": "Preference value",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"key", "value"},
				},
			},
			{
				"name":        "preference_forget",
				"description": "Forget a previously remembered preference by key.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"key": map[string]any{
							"type":        "string",
							"description": "Preference key to forget",
						},
						"speaker": map[string]any{
							"type":        "string",
							"description": "Speaker name for multi-user resolution. If omitted, uses the default user.",
						},
					},
					"required": []string{"key"},
				},
			},
			{
				"name":        "user_register",
				"description": "Register a speaker name as a verdant user. Returns the new user's ID. Use this when a new household member wants their own garden, schedules, and preferences.",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{
							"type":        "string",
							"description": "Speaker name to register",
						},
					},
					"required": []string{"name"},
				},
			},
			{
				"name":        "user_list",
				"description": "List all registered verdant users.",
				"inputSchema": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
	}
}

func (s *server) handleToolsCall(params json.RawMessage) any {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(params, &call); err != nil {
		return mcpError("invalid tool call: %v", err)
	}

	switch call.Name {
	case "garden_list":
		return s.handleGardenList(call.Arguments)
	case "garden_add":
		return s.handleGardenAdd(call.Arguments)
	case "garden_water":
		return s.handleGardenWater(call.Arguments)
	case "garden_remove":
		return s.handleGardenRemove(call.Arguments)
	case "plants_list":
		return s.handlePlantsList()
	case "schedule_create":
		return s.handleScheduleCreate(call.Arguments)
	case "schedule_extend":
		return s.handleScheduleExtend(call.Arguments)
	case "schedule_show":
		return s.handleScheduleShow(call.Arguments)
	case "task_toggle":
		return s.handleTaskToggle(call.Arguments)
	case "notifications":
		return s.handleNotifications(call.Arguments)
	case "notifications_clear":
		return s.handleNotificationsClear(call.Arguments)
	case "scan_now":
		return s.handleScanNow()
	case "chat":
		return s.handleChat(call.Arguments)
	case "context_get":
		return s.handleContextGet(call.Arguments)
	case "journals_list":
		return s.handleJournalsList(call.Arguments)
	case "journal_add":
		return s.handleJournalAdd(call.Arguments)
	case "preference_set":
		return s.handlePreferenceSet(call.Arguments)
	case "preference_forget":
		return s.handlePreferenceForget(call.Arguments)
	case "user_register":
		return s.handleUserRegister(call.Arguments)
	case "user_list":
		return s.handleUserList()
	default:
		return mcpError("unknown tool: %s", call.Name)
	}
}

// --- tool handlers ---

func (s *server) handleGardenList(args json.RawMessage) any {
	var params struct {
		Speaker string `json:"speaker"`
	}
	json.Unmarshal(args, &params)
	userID := s.resolveUser(params.Speaker)

	items, err := s.engine.GetGarden(userID)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("garden_list: %d items", len(items))
	return mcpJSON(items)
}

func (s *server) handleGardenAdd(args json.RawMessage) any {
	var params struct {
		PlantID  int64  `json:"plant_id"`
		Nickname string `json:"nickname"`
		Location string `json:"location"`
		Quantity int    `json:"quantity"`
		Speaker  string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.PlantID == 0 {
		return mcpError("plant_id parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	id, err := s.engine.AddGardenItem(userID, verdant.GardenItem{
		PlantID:  params.PlantID,
		Nickname: params.Nickname,
		Location: params.Location,
		Quantity: params.Quantity,
	})
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("garden_add: plant=%d item=%d", params.PlantID, id)
	return mcpJSON(map[string]any{"id": id})
}

func (s *server) handleGardenWater(args json.RawMessage) any {
	var params struct {
		ItemID  int64  `json:"item_id"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.ItemID == 0 {
		return mcpError("item_id parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	if err := s.engine.WaterPlant(userID, params.ItemID); err != nil {
		return mcpError("%v", err)
	}

	log.Printf("garden_water: item=%d", params.ItemID)
	return mcpText("Plant %d watered.", params.ItemID)
}

func (s *server) handleGardenRemove(args json.RawMessage) any {
	var params struct {
		ItemID  int64  `json:"item_id"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.ItemID == 0 {
		return mcpError("item_id parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	if err := s.engine.RemoveGardenItem(userID, params.ItemID); err != nil {
		return mcpError("%v", err)
	}

	log.Printf("garden_remove: item=%d", params.ItemID)
	return mcpText("Plant %d removed from the garden.", params.ItemID)
}

func (s *server) handlePlantsList() any {
	plants, err := s.engine.ListPlants()
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("plants_list: %d plants", len(plants))
	return mcpJSON(plants)
}

func (s *server) handleScheduleCreate(args json.RawMessage) any {
	var params struct {
		ItemID  int64  `json:"item_id"`
		Stage   string `json:"stage"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.ItemID == 0 {
		return mcpError("item_id parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	result, err := s.engine.CreateSchedule(userID, params.ItemID, params.Stage)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("schedule_create: item=%d schedule=%d days=%d degraded=%v",
		params.ItemID, result.ScheduleID, len(result.Days), result.Degraded)
	return mcpJSON(result)
}

func (s *server) handleScheduleExtend(args json.RawMessage) any {
	var params struct {
		ScheduleID int64  `json:"schedule_id"`
		Speaker    string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.ScheduleID == 0 {
		return mcpError("schedule_id parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	result, err := s.engine.ExtendSchedule(userID, params.ScheduleID)
	if err != nil {
		return mcpError("%v", err)
	}

	if result.NoOp {
		return mcpText("Schedule %d already covers the full growing period.", params.ScheduleID)
	}

	log.Printf("schedule_extend: schedule=%d days=%d", params.ScheduleID, len(result.Days))
	return mcpJSON(result)
}

func (s *server) handleScheduleShow(args json.RawMessage) any {
	var params struct {
		ScheduleID int64  `json:"schedule_id"`
		Speaker    string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.ScheduleID == 0 {
		return mcpError("schedule_id parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	days, err := s.engine.GetScheduleDays(userID, params.ScheduleID)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("schedule_show: schedule=%d days=%d", params.ScheduleID, len(days))
	return mcpJSON(days)
}

func (s *server) handleTaskToggle(args json.RawMessage) any {
	var params struct {
		ScheduleID int64  `json:"schedule_id"`
		Day        int    `json:"day"`
		TaskIndex  *int   `json:"task_index"`
		Completed  *bool  `json:"completed"`
		Speaker    string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.ScheduleID == 0 {
		return mcpError("schedule_id parameter is required")
	}
	if params.Day <= 0 {
		return mcpError("day parameter is required")
	}
	if params.TaskIndex == nil {
		return mcpError("task_index parameter is required")
	}
	if params.Completed == nil {
		return mcpError("completed parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	result, err := s.engine.ToggleTask(userID, params.ScheduleID, params.Day, *params.TaskIndex, *params.Completed)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("task_toggle: schedule=%d day=%d index=%d completed=%v",
		params.ScheduleID, params.Day, *params.TaskIndex, *params.Completed)
	return mcpText("%s", result.Message)
}

func (s *server) handleNotifications(args json.RawMessage) any {
	var params struct {
		Limit   int    `json:"limit"`
		Speaker string `json:"speaker"`
	}
	json.Unmarshal(args, &params)
	userID := s.resolveUser(params.Speaker)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	notifs, err := s.engine.GetNotifications(userID, limit)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("notifications: %d", len(notifs))
	return mcpJSON(notifs)
}

func (s *server) handleNotificationsClear(args json.RawMessage) any {
	var params struct {
		Speaker string `json:"speaker"`
	}
	json.Unmarshal(args, &params)
	userID := s.resolveUser(params.Speaker)

	n, err := s.engine.ClearNotifications(userID)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("notifications_clear: %d cleared", n)
	return mcpText("%d notifications marked as read.", n)
}

func (s *server) handleScanNow() any {
	if s.scanner == nil {
		return mcpError("scanning is not enabled (start with --scan)")
	}

	result, err := s.scanner.scan()
	if err != nil {
		return mcpError("scan failed: %v", err)
	}

	log.Printf("scan_now: %d schedules, %d notifications ensured, %d days completed",
		result.SchedulesScanned, result.Ensured, result.Completed)
	return mcpJSON(result)
}

func (s *server) handleChat(args json.RawMessage) any {
	var params struct {
		Message string `json:"message"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.Message == "" {
		return mcpError("message parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	reply, err := s.engine.Chat(userID, params.Message)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("chat: %d chars in, %d chars out", len(params.Message), len(reply))
	return mcpText("%s", reply)
}

func (s *server) handleContextGet(args json.RawMessage) any {
	var params struct {
		Speaker string `json:"speaker"`
	}
	json.Unmarshal(args, &params)
	userID := s.resolveUser(params.Speaker)

	snap := s.engine.BuildContext(userID)

	log.Printf("context_get: user=%d", userID)
	return mcpJSON(snap)
}

func (s *server) handleJournalsList(args json.RawMessage) any {
	var params struct {
		Speaker string `json:"speaker"`
	}
	json.Unmarshal(args, &params)
	userID := s.resolveUser(params.Speaker)

	journals, err := s.engine.GetJournals(userID)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("journals_list: %d journals", len(journals))
	return mcpJSON(journals)
}

func (s *server) handleJournalAdd(args json.RawMessage) any {
	var params struct {
		Title    string   `json:"title"`
		PlantID  *int64   `json:"plant_id"`
		Notes    string   `json:"notes"`
		HeightCm *float64 `json:"height_cm"`
		WidthCm  *float64 `json:"width_cm"`
		Speaker  string   `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.Notes == "" {
		return mcpError("notes parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	title := params.Title
	if title == "" {
		title = "Garden journal"
	}

	id, err := s.engine.AddJournalEntry(userID, params.PlantID, title, verdant.JournalEntry{
		Notes:          params.Notes,
		GrowthHeightCm: params.HeightCm,
		GrowthWidthCm:  params.WidthCm,
	})
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("journal_add: entry=%d", id)
	return mcpText("Journal entry %d recorded.", id)
}

func (s *server) handlePreferenceSet(args json.RawMessage) any {
	var params struct {
		Key     string `json:"key"`
		Value   string `json:"value"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.Key == "" {
		return mcpError("key parameter is required")
	}
	if params.Value == "" {
		return mcpError("value parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	if err := s.engine.RememberPreference(userID, params.Key, params.Value); err != nil {
		return mcpError("%v", err)
	}

	log.Printf("preference_set: %s", params.Key)
	return mcpText("Preference %q remembered.", params.Key)
}

func (s *server) handlePreferenceForget(args json.RawMessage) any {
	var params struct {
		Key     string `json:"key"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.Key == "" {
		return mcpError("key parameter is required")
	}
	userID := s.resolveUser(params.Speaker)

	if err := s.engine.ForgetPreference(userID, params.Key); err != nil {
		return mcpError("%v", err)
	}

	log.Printf("preference_forget: %s", params.Key)
	return mcpText("Preference %q forgotten.", params.Key)
}

func (s *server) handleUserRegister(args json.RawMessage) any {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return mcpError("invalid arguments: %v", err)
	}
	if params.Name == "" {
		return mcpError("name parameter is required")
	}

	user, err := s.engine.RegisterUser(params.Name, "user", false)
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("user_register: name=%q id=%d", params.Name, user.ID)
	return mcpJSON(map[string]any{"id": user.ID, "name": user.Username})
}

func (s *server) handleUserList() any {
	users, err := s.engine.ListUsers()
	if err != nil {
		return mcpError("%v", err)
	}

	log.Printf("user_list: %d users", len(users))
	return mcpJSON(users)
}

// --- MCP response helpers ---

func mcpText(format string, args ...any) any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": fmt.Sprintf(format, args...)},
		},
	}
}

func mcpJSON(data any) any {
	b, err := json.Marshal(data)
	if err != nil {
		return mcpError("marshal response: %v", err)
	}
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(b)},
		},
	}
}

func mcpError(format string, args ...any) any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": fmt.Sprintf("Error: "+format, args...)},
		},
		"isError": true,
	}
}
