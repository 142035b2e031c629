// dispatchctl is a small operator CLI for a running dispatchd instance.
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

	"github.com/wildrydes/dispatch/internal/fleet"
)

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL = envOr("DISPATCH_URL", "http://localhost:8080")
		tok     = envOr("DISPATCH_TOKEN", "")
		out     = envOr("DISPATCH_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "dispatchctl",
		Short: "Operator CLI for the WildRydes dispatch service",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "Service base URL (env DISPATCH_URL)")
	root.PersistentFlags().StringVar(&tok, "token", tok, "Bearer token for authed endpoints (env DISPATCH_TOKEN)")
	root.PersistentFlags().StringVar(&out, "out", out, "Output format: json|text")

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL, cl.Token, cl.OutFormat = baseURL, tok, out
	}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/readyz", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("ping failed: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}

	signinCmd := &cobra.Command{
		Use:   "signin <email> <password>",
		Short: "Sign in and print a bearer token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _ := json.Marshal(map[string]string{"Email": args[0], "Password": args[1]})
			status, body, err := cl.do("POST", "/auth/signin", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("signin failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	rideCmd := &cobra.Command{Use: "ride", Short: "Ride operations"}

	rideGetCmd := &cobra.Command{
		Use:   "get <ride-id>",
		Short: "Look up one of your rides (requires --token)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cl.Token == "" {
				return fmt.Errorf("missing bearer token (flag --token or env DISPATCH_TOKEN)")
			}
			status, body, err := cl.do("GET", "/ride/"+args[0], nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("ride get failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	rideCmd.AddCommand(rideGetCmd)

	jwksCmd := &cobra.Command{
		Use:   "jwks",
		Short: "Print the service's verification keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/.well-known/jwks.json", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	fleetCmd := &cobra.Command{
		Use:   "fleet [path]",
		Short: "Validate and print a fleet roster file (default ./fleet.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./fleet.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			f, err := fleet.LoadOrDefault(path)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				p, _ := json.MarshalIndent(f.All(), "", "  ")
				fmt.Println(string(p))
				return nil
			}
			for _, u := range f.All() {
				fmt.Printf("%s\t%s\n", u.Name, u.Color)
			}
			return nil
		},
	}

	root.AddCommand(pingCmd, signinCmd, rideCmd, jwksCmd, fleetCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
