package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// Queue commands talk to a running serve process over its HTTP API; the
// handoff queue lives in that process, not in the database.

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and work the handoff queue of a running server",
	}
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueAssignCmd())
	cmd.AddCommand(newQueueResolveCmd())
	return cmd
}

func apiFlag(cmd *cobra.Command, apiBase *string) {
	cmd.Flags().StringVar(apiBase, "api", "http://127.0.0.1:8000", "base URL of the Helpline API")
}

func newQueueListCmd() *cobra.Command {
	var apiBase string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List handoff requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body struct {
				Pending  map[string]int `json:"pending"`
				Requests []struct {
					RequestID      string `json:"request_id"`
					ConversationID string `json:"conversation_id"`
					CustomerID     string `json:"customer_id"`
					Priority       string `json:"priority"`
					Status         string `json:"status"`
					Position       int    `json:"position"`
					EstimatedWait  int    `json:"estimated_wait_minutes"`
					AssignedAgent  string `json:"assigned_agent"`
				} `json:"requests"`
			}
			if err := apiCall(http.MethodGet, apiBase+"/api/queue", nil, &body); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pending: urgent=%d high=%d medium=%d low=%d\n\n",
				body.Pending["urgent"], body.Pending["high"], body.Pending["medium"], body.Pending["low"])

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REQUEST\tCUSTOMER\tPRIORITY\tSTATUS\tPOS\tWAIT\tAGENT")
			for _, r := range body.Requests {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%dm\t%s\n",
					r.RequestID, r.CustomerID, r.Priority, r.Status, r.Position, r.EstimatedWait, r.AssignedAgent)
			}
			return w.Flush()
		},
	}

	apiFlag(cmd, &apiBase)
	return cmd
}

func newQueueAssignCmd() *cobra.Command {
	var apiBase string

	cmd := &cobra.Command{
		Use:   "assign <request-id> <agent-id>",
		Short: "Assign a handoff request to an agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body struct {
				RequestID     string `json:"request_id"`
				Status        string `json:"status"`
				AssignedAgent string `json:"assigned_agent"`
			}
			err := apiCall(http.MethodPost, apiBase+"/api/queue/"+args[0]+"/assign",
				map[string]string{"agent_id": args[1]}, &body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s assigned to %s\n", body.RequestID, body.AssignedAgent)
			return nil
		},
	}

	apiFlag(cmd, &apiBase)
	return cmd
}

func newQueueResolveCmd() *cobra.Command {
	var apiBase string

	cmd := &cobra.Command{
		Use:   "resolve <request-id>",
		Short: "Mark a handoff request as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body struct {
				RequestID string `json:"request_id"`
				Status    string `json:"status"`
			}
			err := apiCall(http.MethodPost, apiBase+"/api/queue/"+args[0]+"/resolve", nil, &body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", body.RequestID, body.Status)
			return nil
		},
	}

	apiFlag(cmd, &apiBase)
	return cmd
}

func apiCall(method, url string, payload, out any) error {
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return fmt.Errorf("queue: encode request: %w", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("queue: is the server running? %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("queue: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("queue: %s", apiErr.Error)
		}
		return fmt.Errorf("queue: server returned %d", resp.StatusCode)
	}
	return json.Unmarshal(data, out)
}
