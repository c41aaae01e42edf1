package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "orisa.dev/pkg/orisa/internal/model"
)

const emitLongDescription = `Send one event to a running orisa dispatcher.

EVENT-TYPE is one of TestsCollected, TestsScheduled, TestOutcome or Report.
DATA is the JSON payload; it is read from stdin when omitted or "-".

The dispatcher address is taken from ORISA_DISPATCHER_ADDR, which orisa sets
for every runner it spawns, and falls back to --host and --port.`

var emitWaitFlag bool

// emitCmd represents the emit command.
var emitCmd = newEmitCmd()

func newEmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit <event-type> [data]",
		Short: "Send an event to the dispatcher",
		Long:  emitLongDescription,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := m.ParseEventType(args[0])
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 2 && args[1] != "-" {
				data = []byte(args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read event data: %w", err)
				}
			}

			event, err := decodeEvent(eventType, data)
			if err != nil {
				return err
			}

			host, port, err := dispatcherTarget()
			if err != nil {
				return err
			}

			if emitWaitFlag {
				err := eventSender.WaitForReady(cmd.Context(), host, port,
					viper.GetInt(dispatcherReadyAttemptsKey), viper.GetDuration(dispatcherReadyDelayKey))
				if err != nil {
					return err
				}
			}

			return eventSender.Send(cmd.Context(), host, port, event)
		},
	}

	cmd.Flags().BoolVarP(&emitWaitFlag, "wait", "w", false, "wait for the dispatcher to accept connections first")

	return cmd
}

func init() {
	rootCmd.AddCommand(emitCmd)
}

// decodeEvent validates data as the payload of eventType by decoding the
// envelope it will travel in.
func decodeEvent(eventType m.EventType, data []byte) (m.Event, error) {
	envelope, err := json.Marshal(struct {
		Type m.EventType     `json:"type"`
		Data json.RawMessage `json:"data"`
	}{
		Type: eventType,
		Data: json.RawMessage(strings.TrimSpace(string(data))),
	})
	if err != nil {
		return m.Event{}, fmt.Errorf("invalid %s data: %w", eventType, err)
	}

	event, err := eventCodec.Decode(envelope)
	if err != nil {
		return m.Event{}, fmt.Errorf("invalid %s data: %w", eventType, err)
	}

	return event, nil
}

func dispatcherTarget() (string, int, error) {
	if addr := viper.GetString(dispatcherAddrKey); addr != "" {
		return splitAddr(addr)
	}

	return viper.GetString(dispatcherHostKey), viper.GetInt(dispatcherPortKey), nil
}
