// Package client contains Cobra CLI commands that talk to the HTTP
// inspection API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewInstanceCommand constructs the `instance` command group.
func NewInstanceCommand(baseURL BaseURLFunc) *cobra.Command {
	instCmd := &cobra.Command{Use: "instance", Short: "Instance operations"}
	instCmd.AddCommand(
		newInstanceCreateCommand(baseURL),
		newInstanceListCommand(baseURL),
		newInstancePurgeCommand(baseURL),
	)
	return instCmd
}

func newInstanceCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register an instance (generates an id when --id is omitted)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				id = uuid.NewString()
			}
			body := fmt.Sprintf(`{"instance":%q}`, id)
			resp, err := http.Post(baseURL()+"/v1/instances/create", "application/json", strings.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("create failed: %s", resp.Status)
			}
			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}
	createCmd.Flags().String("id", "", "Instance id (generated when empty)")
	return createCmd
}

func newInstanceListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known instances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := http.Get(baseURL() + "/v1/instances")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("list failed: %s", resp.Status)
			}
			return printJSON(cmd.OutOrStdout(), resp.Body)
		},
	}
}

func newInstancePurgeCommand(baseURL BaseURLFunc) *cobra.Command {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete an instance's journal and metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			body := fmt.Sprintf(`{"instance":%q}`, id)
			resp, err := http.Post(baseURL()+"/v1/instances/purge", "application/json", strings.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("purge failed: %s", resp.Status)
			}
			return printJSON(cmd.OutOrStdout(), resp.Body)
		},
	}
	purgeCmd.Flags().String("id", "", "Instance id")
	return purgeCmd
}

// NewLogCommand constructs the `log` command group for journal reads.
func NewLogCommand(baseURL BaseURLFunc) *cobra.Command {
	logCmd := &cobra.Command{Use: "log", Short: "Journal operations"}
	logCmd.AddCommand(newLogReadCommand(baseURL))
	return logCmd
}

func newLogReadCommand(baseURL BaseURLFunc) *cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read invocation records for an instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instID, _ := cmd.Flags().GetString("instance")
			if instID == "" {
				return fmt.Errorf("--instance is required")
			}
			from, _ := cmd.Flags().GetUint64("from")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{}
			q.Set("instance", instID)
			if from > 0 {
				q.Set("from", strconv.FormatUint(from, 10))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			resp, err := http.Get(baseURL() + "/v1/records?" + q.Encode())
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("read failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
			}
			return printJSON(cmd.OutOrStdout(), resp.Body)
		},
	}
	readCmd.Flags().String("instance", "", "Instance id")
	readCmd.Flags().Uint64("from", 0, "First ordinal to return")
	readCmd.Flags().Int("limit", 100, "Max records (0 = server default)")
	readCmd.Flags().String("filter", "", "CEL filter (server-side)")
	return readCmd
}

// printJSON re-indents a JSON body for terminal output.
func printJSON(w io.Writer, r io.Reader) error {
	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
