package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"duck-tables/internal/api"
	"duck-tables/internal/service/table"
)

// client calls a tables server.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(host string) (*client, error) {
	root, err := baseURL(host)
	if err != nil {
		return nil, err
	}
	return &client{
		baseURL: root,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// do sends a request to /v1 + path and decodes a JSON response into out.
// Error bodies become errors carrying the server's message.
func (c *client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + "/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr api.Error
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	return q
}

func newPresetsCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List and run saved tables on a tables server",
	}
	cmd.AddCommand(newPresetsListCmd(s))
	cmd.AddCommand(newPresetsRunCmd(s))
	return cmd
}

func newPresetsListCmd(s *settings) *cobra.Command {
	var (
		ds             string
		page, pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(s.host)
			if err != nil {
				return err
			}
			q := pageQuery(page, pageSize)
			if ds != "" {
				q.Set("dataset", ds)
			}
			var list api.PresetList
			if err := c.do(cmd.Context(), http.MethodGet, "/presets", q, &list); err != nil {
				return err
			}
			if getOutputFormat(cmd) == outputJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			rows := make([][]string, len(list.Data))
			for i, p := range list.Data {
				rows[i] = []string{p.Name, p.Dataset, p.Description, p.UpdatedAt.Format(time.DateTime)}
			}
			if err := printTable(cmd.OutOrStdout(), []string{"name", "dataset", "description", "updated"}, rows); err != nil {
				return err
			}
			printNote(cmd.OutOrStdout(), "page %d of %d, %d presets", list.Page+1, max(list.PageCount, 1), list.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&ds, "dataset", "", "only presets over this dataset")
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "presets per page")
	return cmd
}

func newPresetsRunCmd(s *settings) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a preset and print one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(s.host)
			if err != nil {
				return err
			}
			var p table.Page
			path := "/presets/" + url.PathEscape(args[0]) + "/run"
			if err := c.do(cmd.Context(), http.MethodPost, path, pageQuery(page, pageSize), &p); err != nil {
				return err
			}
			return printPage(cmd, &p)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page")
	return cmd
}
