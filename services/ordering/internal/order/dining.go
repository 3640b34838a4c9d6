package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
)

// TableOrder is the dining service view of an open table bill.
type TableOrder struct {
	ID             string           `json:"_id"`
	TableNumber    int              `json:"tableNumber"`
	CustomersCount int              `json:"customersCount"`
	Opened         string           `json:"opened,omitempty"`
	Lines          []TableOrderLine `json:"lines,omitempty"`
	Preparations   []interface{}    `json:"preparations,omitempty"`
	Billed         string           `json:"billed,omitempty"`
}

func (o TableOrder) IsBilled() bool {
	return o.Billed != ""
}

type TableOrderLine struct {
	Item struct {
		ID        string `json:"_id"`
		ShortName string `json:"shortName"`
	} `json:"item"`
	HowMany            int  `json:"howMany"`
	SentForPreparation bool `json:"sentForPreparation"`
}

// OrderingLine is one line appended to a table order.
type OrderingLine struct {
	MenuItemID        string `json:"menuItemId"`
	MenuItemShortName string `json:"menuItemShortName"`
	HowMany           int    `json:"howMany"`
}

type DiningClient interface {
	ListTableOrders(ctx context.Context) ([]TableOrder, error)
	OpenTableOrder(ctx context.Context, tableNumber, customersCount int) (TableOrder, error)
	AddLine(ctx context.Context, orderID string, line OrderingLine) error
	SendForPreparation(ctx context.Context, orderID string) error
	GetTableOrder(ctx context.Context, orderID string) (TableOrder, error)
}

var ErrNoDiningClient = errors.New("dining service client not configured")

// DiningDataAccess talks to the dining service.
type DiningDataAccess struct {
	client *apt.ServiceClient
}

func NewDiningDataAccess(client *apt.ServiceClient) *DiningDataAccess {
	return &DiningDataAccess{client: client}
}

func (d *DiningDataAccess) ListTableOrders(ctx context.Context) ([]TableOrder, error) {
	if d == nil || d.client == nil {
		return nil, ErrNoDiningClient
	}
	resp, err := d.client.Request(ctx, http.MethodGet, "/tableOrders", nil)
	if err != nil {
		return nil, fmt.Errorf("cannot list table orders: %w", err)
	}
	var orders []TableOrder
	if err := decodeSuccessResponse(resp, &orders); err != nil {
		return nil, fmt.Errorf("cannot decode table orders: %w", err)
	}
	return orders, nil
}

func (d *DiningDataAccess) OpenTableOrder(ctx context.Context, tableNumber, customersCount int) (TableOrder, error) {
	if d == nil || d.client == nil {
		return TableOrder{}, ErrNoDiningClient
	}
	body := map[string]interface{}{
		"tableNumber":    tableNumber,
		"customersCount": customersCount,
	}
	resp, err := d.client.Request(ctx, http.MethodPost, "/tableOrders", body)
	if err != nil {
		return TableOrder{}, fmt.Errorf("cannot open table order for table %d: %w", tableNumber, err)
	}
	var order TableOrder
	if err := decodeSuccessResponse(resp, &order); err != nil {
		return TableOrder{}, fmt.Errorf("cannot decode table order: %w", err)
	}
	return order, nil
}

func (d *DiningDataAccess) AddLine(ctx context.Context, orderID string, line OrderingLine) error {
	if d == nil || d.client == nil {
		return ErrNoDiningClient
	}
	body := map[string]interface{}{
		"menuItemId":        line.MenuItemID,
		"menuItemShortName": line.MenuItemShortName,
		"howMany":           line.HowMany,
	}
	if _, err := d.client.Request(ctx, http.MethodPost, "/tableOrders/"+orderID, body); err != nil {
		return fmt.Errorf("cannot add %s to table order %s: %w", line.MenuItemShortName, orderID, err)
	}
	return nil
}

func (d *DiningDataAccess) SendForPreparation(ctx context.Context, orderID string) error {
	if d == nil || d.client == nil {
		return ErrNoDiningClient
	}
	if _, err := d.client.Request(ctx, http.MethodPost, "/tableOrders/"+orderID+"/prepare", nil); err != nil {
		return fmt.Errorf("cannot send table order %s for preparation: %w", orderID, err)
	}
	return nil
}

func (d *DiningDataAccess) GetTableOrder(ctx context.Context, orderID string) (TableOrder, error) {
	if d == nil || d.client == nil {
		return TableOrder{}, ErrNoDiningClient
	}
	resp, err := d.client.Request(ctx, http.MethodGet, "/tableOrders/"+orderID, nil)
	if err != nil {
		return TableOrder{}, fmt.Errorf("cannot fetch table order %s: %w", orderID, err)
	}
	var order TableOrder
	if err := decodeSuccessResponse(resp, &order); err != nil {
		return TableOrder{}, fmt.Errorf("cannot decode table order %s: %w", orderID, err)
	}
	return order, nil
}

// DiningSubmitter opens or reuses the unbilled order of the table, appends
// every paid line, sends the order to the kitchen and reads it back.
type DiningSubmitter struct {
	client DiningClient
	logger apt.Logger
}

func NewDiningSubmitter(client DiningClient, logger apt.Logger) *DiningSubmitter {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &DiningSubmitter{client: client, logger: logger}
}

func (s *DiningSubmitter) SubmitOrder(ctx context.Context, p Payload) (Result, error) {
	if s.client == nil {
		return Result{}, ErrNoDiningClient
	}
	log := s.logger.With("order_id", p.OrderID, "table", p.TableNumber)

	orderID, err := s.openOrReuse(ctx, p)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	added := 0
	for _, line := range p.Lines {
		// Rewards are not on the dining menu.
		if line.Freebie {
			continue
		}
		err := s.client.AddLine(ctx, orderID, OrderingLine{
			MenuItemID:        line.DishID,
			MenuItemShortName: catalog.ShortName(line.Name),
			HowMany:           line.Quantity,
		})
		if err != nil {
			return Result{Success: false, Error: err.Error()}, nil
		}
		added++
	}
	log.Debug("lines added to table order", "backend_id", orderID, "lines", added)

	if err := s.client.SendForPreparation(ctx, orderID); err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	verified, err := s.client.GetTableOrder(ctx, orderID)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	log.Info("table order sent to kitchen", "backend_id", orderID, "lines", len(verified.Lines))
	return Result{Success: true, OrderID: orderID, ConfirmedOrder: verified}, nil
}

func (s *DiningSubmitter) openOrReuse(ctx context.Context, p Payload) (string, error) {
	orders, err := s.client.ListTableOrders(ctx)
	if err != nil {
		return "", err
	}
	for _, o := range orders {
		if o.TableNumber == p.TableNumber && !o.IsBilled() {
			s.logger.Debug("reusing open table order", "backend_id", o.ID, "table", p.TableNumber)
			return o.ID, nil
		}
	}

	opened, err := s.client.OpenTableOrder(ctx, p.TableNumber, p.CustomersCount)
	if err != nil {
		return "", err
	}
	if opened.ID == "" {
		return "", fmt.Errorf("dining service returned a table order without id")
	}
	return opened.ID, nil
}

// TableHistory lists the dining orders of one table. Failures yield an empty
// list, the history is informational.
func TableHistory(ctx context.Context, client DiningClient, tableNumber int, logger apt.Logger) []TableOrder {
	if client == nil {
		return nil
	}
	orders, err := client.ListTableOrders(ctx)
	if err != nil {
		if logger != nil {
			logger.Info("cannot load dining history", "table", tableNumber, "error", err)
		}
		return nil
	}
	var out []TableOrder
	for _, o := range orders {
		if o.TableNumber == tableNumber {
			out = append(out, o)
		}
	}
	return out
}

func decodeSuccessResponse(resp *apt.SuccessResponse, target interface{}) error {
	if resp == nil {
		return fmt.Errorf("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, target)
}
