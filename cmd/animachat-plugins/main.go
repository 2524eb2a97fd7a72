package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rain-1/animachat/internal/config"
	"github.com/rain-1/animachat/internal/logging"
	"github.com/rain-1/animachat/internal/pluginrt"
	"github.com/rain-1/animachat/internal/pluginrt/examples/inject"
	"github.com/rain-1/animachat/internal/pluginrt/examples/notes"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "animachat-plugins",
	Short: "animachat plugin runtime demo harness",
	Long: `animachat-plugins drives the plugin runtime core against a demo
channel so the context-injection pipeline and tool dispatcher can be
exercised from the command line instead of from inside the bot process.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logging.Init(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Sync()
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "inspect and exercise registered plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list plugins known to the demo runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		for _, name := range rt.Registry().Names() {
			fmt.Println(name)
		}
		return nil
	},
}

var (
	demoChannel string
	demoNote    string
)

var pluginsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "run one demo activation: build injections, then call a tool",
	RunE:  runDemoActivation,
}

// newChannelCmd generates a fresh channel id the way a real chat-platform
// adapter would mint one for a new conversation — a UUID, since channel
// identity carries no ordering requirement (unlike message ids).
var newChannelCmd = &cobra.Command{
	Use:   "new-channel",
	Short: "print a freshly generated channel id",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(uuid.NewString())
		return nil
	},
}

// demoMessageIDs mints message ids the way rcliao-agent-memory's SQLiteStore
// mints row ids: a ULID per call, which keeps lexicographic order aligned
// with generation order, matching the snowflake-like id ordering the
// runtime assumes of its caller.
func demoMessageIDs(n int) []string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
	return ids
}

func runDemoActivation(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	orderedIDs := demoMessageIDs(3)
	actx := pluginrt.NewActivationContext(orderedIDs, demoChannel, orderedIDs[len(orderedIDs)-1], nil)

	activations, err := rt.Activate(actx)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	var notesActivation *pluginrt.Activation
	for _, act := range activations {
		if act.Descriptor().Name == "notes" {
			notesActivation = act
		}
	}
	if notesActivation == nil {
		return fmt.Errorf("notes plugin was not enabled by configuration")
	}

	rawInput, err := json.Marshal(map[string]string{"text": demoNote})
	if err != nil {
		return err
	}
	result, err := rt.DispatchTool(context.Background(), notesActivation, "add_note", rawInput)
	if err != nil {
		return fmt.Errorf("dispatch add_note: %w", err)
	}
	fmt.Printf("tool result: %v\n", result.Output)

	transcript := []string{"alice: hi", "bob: hey", "alice: anything new?"}
	out := pluginrt.BuildInjections(activations, transcript, orderedIDs, nil, func(inj pluginrt.ContextInjection) string {
		entry := pluginrt.RenderInjection(inj, "Notekeeper")
		return entry.Text
	})

	fmt.Println("---- transcript with injections ----")
	for _, line := range out {
		fmt.Println(line)
	}
	return nil
}

func buildRuntime() (*pluginrt.Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.EnabledPlugins) == 0 {
		cfg.EnabledPlugins = []string{"inject", "notes"}
	}

	rt := pluginrt.New(cfg, &stdoutHost{})
	if err := rt.Register(notes.Descriptor(), notes.Reducer()); err != nil {
		return nil, fmt.Errorf("register notes: %w", err)
	}
	if err := rt.Register(inject.Descriptor(), nil); err != nil {
		return nil, fmt.Errorf("register inject: %w", err)
	}
	return rt, nil
}

// stdoutHost is a demo-only pluginrt.Host that prints instead of talking
// to a real chat platform.
type stdoutHost struct{}

func (h *stdoutHost) SendMessage(channelID, content string) ([]string, error) {
	fmt.Printf("[host] send(%s): %s\n", channelID, content)
	return []string{"demo-msg-id"}, nil
}

func (h *stdoutHost) PinMessage(channelID, messageID string) error {
	fmt.Printf("[host] pin(%s): %s\n", channelID, messageID)
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "animachat-plugins.yaml", "path to the plugin runtime configuration")

	pluginsRunCmd.Flags().StringVar(&demoChannel, "channel", "demo-channel", "channel id for the demo activation")
	pluginsRunCmd.Flags().StringVar(&demoNote, "note", "remember the milk", "note text passed to notes.add_note")

	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsRunCmd)
	pluginsCmd.AddCommand(newChannelCmd)
	rootCmd.AddCommand(pluginsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
