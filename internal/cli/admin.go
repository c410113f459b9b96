package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/paywow/settlement/internal/core/config"
)

// callAdmin posts an owner-authenticated request to the running service's ops
// port. Admin operations go through the live engine rather than the database,
// so the components' own authorization and ledger bookkeeping apply.
func callAdmin(path string, query url.Values) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	endpoint := url.URL{
		Scheme:   "http",
		Host:     fmt.Sprintf("localhost:%d", cfg.Server.Port),
		Path:     path,
		RawQuery: query.Encode(),
	}
	req, err := http.NewRequest(http.MethodPost, endpoint.String(), nil)
	if err != nil {
		slog.Error("Failed to build request", "error", err)
		os.Exit(1)
	}
	req.Header.Set("X-Settlement-Caller", cfg.Settlement.Owner)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Error("Is the service running?", "error", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (%s): %s\n", resp.Status, strings.TrimSpace(string(body)))
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(body)))
}
