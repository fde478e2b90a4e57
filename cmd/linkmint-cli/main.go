package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

var (
	serverEndpoint = flag.String("server-endpoint", "http://localhost:8080", "linkmint server base URL")
	token          = flag.String("token", os.Getenv("LINKMINT_TOKEN"), "bearer token (defaults to LINKMINT_TOKEN)")
)

const usage = `Usage: linkmint [flags] <command> [args]

A CLI to interact with the linkmint service.

Commands:
  login <username> <password>   Authenticates and prints a bearer token.
  shorten <url> [alias]         Shortens a long URL, optionally under a custom alias.
  list                          Lists your short links.
  delete <code>                 Deletes one of your short links.

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "login":
		err = loginCmd(args[1:])
	case "shorten":
		err = shortenCmd(args[1:])
	case "list":
		err = listCmd()
	case "delete":
		err = deleteCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type urlPayload struct {
	OriginalURL  string `json:"originalUrl"`
	ShortURL     string `json:"shortUrl"`
	FullShortURL string `json:"fullShortUrl"`
	ClickCount   int64  `json:"clickCount"`
	ExpiresAt    string `json:"expiresAt"`
}

func loginCmd(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("login expects a username and a password")
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := call(http.MethodPost, "/api/auth/login", map[string]string{
		"username": args[0],
		"password": args[1],
	}, &res); err != nil {
		return err
	}
	fmt.Println(res.Token)
	return nil
}

func shortenCmd(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("shorten expects a URL and an optional alias")
	}
	body := map[string]string{"originalUrl": args[0]}
	if len(args) == 2 {
		body["customAlias"] = args[1]
	}
	var res urlPayload
	if err := call(http.MethodPost, "/api/urls/shorten", body, &res); err != nil {
		return err
	}
	fmt.Printf("shortened url: %s\n", res.FullShortURL)
	return nil
}

func listCmd() error {
	var res []urlPayload
	if err := call(http.MethodGet, "/api/urls/my-urls", nil, &res); err != nil {
		return err
	}
	for _, u := range res {
		fmt.Printf("%s\t%d clicks\texpires %s\t%s\n", u.FullShortURL, u.ClickCount, u.ExpiresAt, u.OriginalURL)
	}
	return nil
}

func deleteCmd(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete expects a short code")
	}
	if err := call(http.MethodDelete, "/api/urls/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}

func call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, *serverEndpoint+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach server, make sure it is running: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(res.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Message, res.Status)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
