package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	verdant "github.com/verdanthq/verdant"
	"github.com/verdanthq/verdant/internal/output"
	"github.com/verdanthq/verdant/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath   string
	cfg          *storage.Config
	outputFormat string
	userID       int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "verdant",
		Short: "Your AI gardening companion - care schedules, journals, and a context-aware assistant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "human", "output format: json, text, human")
	rootCmd.PersistentFlags().Int64VarP(&userID, "user", "u", 1, "user ID to act as")

	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(plantCmd())
	rootCmd.AddCommand(gardenCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(contextCmd())
	rootCmd.AddCommand(journalCmd())
	rootCmd.AddCommand(preferenceCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(initConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg = storage.DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		applyEnv()
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv()
	return nil
}

// applyEnv lets the API key come from the environment so it never has to
// live in the config file.
func applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.AI.Gemini.APIKey = key
	}
}

func newEngine() (*verdant.Engine, error) {
	return verdant.NewEngine(verdant.EngineConfig{
		DBPath:              cfg.Database.Path,
		AIProvider:          cfg.AI.Provider,
		GeminiAPIKey:        cfg.AI.Gemini.APIKey,
		GeminiModel:         cfg.AI.Gemini.Model,
		OllamaBaseURL:       cfg.AI.Ollama.BaseURL,
		OllamaModel:         cfg.AI.Ollama.Model,
		ScheduleTemperature: cfg.Temperatures.Schedule,
		ChatTemperature:     cfg.Temperatures.Chat,
	})
}

func newFormatter() *output.Formatter {
	return output.NewFormatter(output.Format(outputFormat))
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var role string
	var pro bool
	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			user, err := engine.RegisterUser(args[0], role, pro)
			if err != nil {
				return fmt.Errorf("failed to register user: %w", err)
			}
			fmt.Printf("Registered user %q with ID %d\n", user.Username, user.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&role, "role", "user", "user role")
	addCmd.Flags().BoolVar(&pro, "pro", false, "mark the user as a pro member")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			users, err := engine.ListUsers()
			if err != nil {
				return err
			}
			for _, u := range users {
				pro := ""
				if u.IsPro {
					pro = " (pro)"
				}
				fmt.Printf("%d\t%s\t%s%s\n", u.ID, u.Username, u.Role, pro)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func plantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plant",
		Short: "Manage the plant catalog",
	}

	var plantType, watering, sunlight string
	var duration int
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a plant to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			p := verdant.Plant{
				Name:          args[0],
				Type:          plantType,
				WateringNeeds: watering,
				Sunlight:      sunlight,
			}
			if duration > 0 {
				p.DurationDays = &duration
			}
			id, err := engine.AddPlant(p)
			if err != nil {
				return fmt.Errorf("failed to add plant: %w", err)
			}
			fmt.Printf("Added plant %q with ID %d\n", args[0], id)
			return nil
		},
	}
	addCmd.Flags().StringVar(&plantType, "type", "", "plant type (vegetable, herb, flower, ...)")
	addCmd.Flags().StringVar(&watering, "watering", "", "watering needs description")
	addCmd.Flags().StringVar(&sunlight, "sunlight", "", "sunlight needs description")
	addCmd.Flags().IntVar(&duration, "duration", 0, "growing duration in days")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the plant catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			plants, err := engine.ListPlants()
			if err != nil {
				return err
			}
			for _, p := range plants {
				duration := "-"
				if p.DurationDays != nil {
					duration = fmt.Sprintf("%dd", *p.DurationDays)
				}
				fmt.Printf("%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Type, duration)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func gardenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garden",
		Short: "Manage your garden",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			items, err := engine.GetGarden(userID)
			if err != nil {
				return err
			}
			return newFormatter().OutputGarden(items)
		},
	}

	var nickname, location string
	var quantity int
	addCmd := &cobra.Command{
		Use:   "add <plant-id>",
		Short: "Add a plant from the catalog to your garden",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plantID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plant ID: %w", err)
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			id, err := engine.AddGardenItem(userID, verdant.GardenItem{
				PlantID:  plantID,
				Nickname: nickname,
				Location: location,
				Quantity: quantity,
			})
			if err != nil {
				return fmt.Errorf("failed to add garden item: %w", err)
			}
			fmt.Printf("Added garden item %d\n", id)
			return nil
		},
	}
	addCmd.Flags().StringVar(&nickname, "nickname", "", "nickname for this planting")
	addCmd.Flags().StringVar(&location, "location", "", "where the plant lives")
	addCmd.Flags().IntVar(&quantity, "quantity", 1, "number of plants")

	waterCmd := &cobra.Command{
		Use:   "water <item-id>",
		Short: "Record that a garden item was watered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item ID: %w", err)
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.WaterPlant(userID, itemID); err != nil {
				return err
			}
			fmt.Printf("Watered item %d\n", itemID)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from your garden",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item ID: %w", err)
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.RemoveGardenItem(userID, itemID); err != nil {
				return err
			}
			fmt.Printf("Removed item %d\n", itemID)
			return nil
		},
	}

	cmd.AddCommand(addCmd, waterCmd, removeCmd)
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and inspect care schedules",
	}

	var stage string
	createCmd := &cobra.Command{
		Use:   "create <item-id>",
		Short: "Generate a day-by-day care schedule for a garden item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item ID: %w", err)
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.CreateSchedule(userID, itemID, stage)
			if err != nil {
				return err
			}
			return newFormatter().OutputScheduleResult(result)
		},
	}
	createCmd.Flags().StringVar(&stage, "stage", "seed", "growth stage: seed, seedling, vegetative, flowering, fruiting, mature")

	extendCmd := &cobra.Command{
		Use:   "extend <schedule-id>",
		Short: "Extend a schedule to cover the rest of the growing period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid schedule ID: %w", err)
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.ExtendSchedule(userID, scheduleID)
			if err != nil {
				return err
			}
			return newFormatter().OutputScheduleResult(result)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <schedule-id>",
		Short: "Show a schedule's day-by-day plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid schedule ID: %w", err)
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			days, err := engine.GetScheduleDays(userID, scheduleID)
			if err != nil {
				return err
			}
			return newFormatter().OutputScheduleDays(days)
		},
	}

	cmd.AddCommand(createCmd, extendCmd, showCmd)
	return cmd
}

func taskCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "task <schedule-id> <day> <task-index>",
		Short: "Mark a schedule task done (or undone with --undo)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid schedule ID: %w", err)
			}
			day, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid day: %w", err)
			}
			taskIndex, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid task index: %w", err)
			}

			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.ToggleTask(userID, scheduleID, day, taskIndex, !undo)
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "unmark the task instead")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Derive pending-task notifications for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.ScanDueToday(userID)
			if err != nil {
				return err
			}
			return newFormatter().OutputScanResult(result)
		},
	}
}

func notificationsCmd() *cobra.Command {
	var clear bool
	var limit int
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if clear {
				n, err := engine.ClearNotifications(userID)
				if err != nil {
					return err
				}
				fmt.Printf("Cleared %d notifications\n", n)
				return nil
			}

			notifs, err := engine.GetNotifications(userID, limit)
			if err != nil {
				return err
			}
			return newFormatter().OutputNotifications(notifs)
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "mark all notifications read")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum notifications to show")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message...>",
		Short: "Ask the gardening assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			reply, err := engine.Chat(userID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return newFormatter().OutputChatReply(reply)
		},
	}
}

func contextCmd() *cobra.Command {
	var showPrompt bool
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show the aggregated context the assistant sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if showPrompt {
				prompt, _, err := engine.BuildPrompt(userID, "(example question)")
				if err != nil {
					return err
				}
				fmt.Println(prompt)
				return nil
			}

			snap := engine.BuildContext(userID)
			return newFormatter().OutputContext(snap)
		},
	}
	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "render the full prompt instead of the raw snapshot")
	return cmd
}

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Keep growth journals",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			journals, err := engine.GetJournals(userID)
			if err != nil {
				return err
			}
			return newFormatter().OutputJournals(journals)
		},
	}

	var title string
	var plantID int64
	var height, width float64
	addCmd := &cobra.Command{
		Use:   "add <notes...>",
		Short: "Add a journal entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			entry := verdant.JournalEntry{Notes: strings.Join(args, " ")}
			if height > 0 {
				entry.GrowthHeightCm = &height
			}
			if width > 0 {
				entry.GrowthWidthCm = &width
			}
			var pid *int64
			if plantID > 0 {
				pid = &plantID
			}
			id, err := engine.AddJournalEntry(userID, pid, title, entry)
			if err != nil {
				return fmt.Errorf("failed to add journal entry: %w", err)
			}
			fmt.Printf("Added journal entry %d to %q\n", id, title)
			return nil
		},
	}
	addCmd.Flags().StringVar(&title, "title", "Garden journal", "journal title")
	addCmd.Flags().Int64Var(&plantID, "plant", 0, "plant ID this journal tracks")
	addCmd.Flags().Float64Var(&height, "height", 0, "measured height in cm")
	addCmd.Flags().Float64Var(&width, "width", 0, "measured width in cm")

	cmd.AddCommand(addCmd)
	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <weed|disease> <image-path>",
		Short: "Classify a plant photo for weeds or disease",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			mimeType := "image/jpeg"
			if strings.HasSuffix(strings.ToLower(args[1]), ".png") {
				mimeType = "image/png"
			}

			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			det, err := engine.DetectImage(userID, kind, mimeType, data)
			if err != nil {
				return err
			}
			return newFormatter().OutputDetection(det)
		},
	}
}

func preferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preference",
		Short: "Manage remembered preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			entries, err := engine.ListPreferences(userID)
			if err != nil {
				return err
			}
			return newFormatter().OutputMemories(entries)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Remember a preference for the assistant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.RememberPreference(userID, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Remembered %q\n", args[0])
			return nil
		},
	}

	forgetCmd := &cobra.Command{
		Use:   "forget <key>",
		Short: "Forget a remembered preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.ForgetPreference(userID, args[0]); err != nil {
				return err
			}
			fmt.Printf("Forgot %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(setCmd, forgetCmd)
	return cmd
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = "./config/config.yaml"
			}

			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config file already exists: %s", configPath)
			}

			data, err := yaml.Marshal(storage.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}
