package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Replace the catalog on an archetype server",
	Long:  "Validates a local catalog file and PUTs it to the server's admin API. The token defaults to ARCHETYPE_ADMIN_TOKEN.",
	RunE:  runPush,
}

var (
	pushCatalog string
	pushAPI     string
	pushToken   string
	pushDryRun  bool
)

func init() {
	pushCmd.Flags().StringVarP(&pushCatalog, "catalog", "c", "", "Path to catalog JSON or YAML file (required)")
	pushCmd.Flags().StringVar(&pushAPI, "api", "http://localhost:8700", "Archetype API base URL")
	pushCmd.Flags().StringVar(&pushToken, "token", "", "Admin bearer token")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Validate without sending")
	mustRequire(pushCmd, "catalog")

	rootCmd.AddCommand(pushCmd)
}

type pushResponse struct {
	AssignedIDs int `json:"assigned_ids"`
	Calibration *struct {
		RunID   string `json:"run_id"`
		Skipped bool   `json:"skipped"`
		Dead    int    `json:"dead"`
	} `json:"calibration"`
}

func runPush(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.LoadFile(pushCatalog)
	if err != nil {
		return err
	}
	if err := cat.Validate(); err != nil {
		return err
	}
	if pushDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %d axes, %d questions, %d archetypes\n",
			len(cat.Axes), len(cat.Questions), len(cat.Archetypes))
		return nil
	}

	token := pushToken
	if token == "" {
		token = os.Getenv("ARCHETYPE_ADMIN_TOKEN")
	}

	body, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPut, strings.TrimRight(pushAPI, "/")+"/api/v1/catalog", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("push catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("push catalog: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "catalog pushed, %d ids assigned\n", out.AssignedIDs)
	if c := out.Calibration; c != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "calibration %s skipped=%t dead=%d\n", c.RunID, c.Skipped, c.Dead)
	}
	return nil
}
