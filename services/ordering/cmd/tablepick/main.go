package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/appetiteclub/apt"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	appNamespace = "TABLEPICK"
	appName      = "tablepick"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	serviceURL := config.GetStringOrDef("services.tableside.url", "http://localhost:8080")
	client := apt.NewServiceClient(serviceURL)

	p := tea.NewProgram(NewModel(openWith(client)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}
}

type openTableRequest struct {
	TableNumber int `json:"table_number"`
}

type tableView struct {
	TableNumber int `json:"table_number"`
	State       struct {
		Screen string `json:"screen"`
	} `json:"state"`
}

func openWith(client *apt.ServiceClient) OpenFunc {
	return func(ctx context.Context, tableNumber int) (Opened, error) {
		resp, err := client.Request(ctx, http.MethodPost, "/tables", openTableRequest{TableNumber: tableNumber})
		if err != nil {
			return Opened{}, err
		}
		if resp == nil || resp.Data == nil {
			return Opened{}, errors.New("empty response")
		}

		raw, err := json.Marshal(resp.Data)
		if err != nil {
			return Opened{}, fmt.Errorf("cannot decode table: %w", err)
		}
		var v tableView
		if err := json.Unmarshal(raw, &v); err != nil {
			return Opened{}, fmt.Errorf("cannot decode table: %w", err)
		}
		return Opened{TableNumber: v.TableNumber, Screen: v.State.Screen}, nil
	}
}
