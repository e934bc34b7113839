package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pizzeria-pos/storefront/internal/cart"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Delivery area defaults applied when the form leaves them blank.
const (
	DefaultCity       = "Toulouse"
	DefaultPostalCode = "31000"
)

// ValidationError is a local precondition failure. No request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// SubmissionError is a rejected order or a transport failure. Message is the
// server detail when the server answered.
type SubmissionError struct {
	Message  string
	Rejected bool // the server answered with an error status
	Err      error
}

func (e *SubmissionError) Error() string { return e.Message }

func (e *SubmissionError) Unwrap() error { return e.Err }

// serverDetailer is implemented by API errors that carry a response body
// message (*apiclient.APIError).
type serverDetailer interface {
	ServerDetail() string
}

// Address is the structured delivery address of POST /orders.
type Address struct {
	StreetNumber string `json:"street_number"`
	Street       string `json:"street"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
}

func (a Address) String() string {
	return fmt.Sprintf("%s %s, %s %s", a.StreetNumber, a.Street, a.PostalCode, a.City)
}

// PizzaRequest is one line as sent to the server. The price is left out:
// the server recomputes it.
type PizzaRequest struct {
	Name     string   `json:"name"`
	Size     string   `json:"size"`
	Toppings []string `json:"toppings"`
}

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	CustomerName    string         `json:"customer_name"`
	Pizzas          []PizzaRequest `json:"pizzas"`
	CustomerAddress Address        `json:"customer_address"`
}

// Receipt is the success body of POST /orders.
type Receipt struct {
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	Address AddressText     `json:"customer_address"`
}

// AddressText is the delivery address echoed back by the server. It decodes
// from either the formatted string or the structured object.
type AddressText string

func (a *AddressText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = AddressText(s)
		return nil
	}
	var addr Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return fmt.Errorf("customer_address: %w", err)
	}
	*a = AddressText(addr.String())
	return nil
}

// Placer sends an order to the API.
// Satisfied by *apiclient.Client.
type Placer interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Receipt, error)
}

// Submitter validates and sends orders. It never touches the cart it reads
// from; disposing of the cart is the caller's job.
type Submitter struct {
	placer Placer
	log    *zap.Logger
}

func NewSubmitter(placer Placer, log *zap.Logger) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{placer: placer, log: log}
}

// Submit validates lines, name and address locally, then posts the order.
func (s *Submitter) Submit(ctx context.Context, lines []cart.Line, customerName string, addr Address) (*Receipt, error) {
	req, err := BuildRequest(lines, customerName, addr)
	if err != nil {
		return nil, err
	}

	receipt, err := s.placer.PlaceOrder(ctx, req)
	if err != nil {
		var sd serverDetailer
		if errors.As(err, &sd) {
			s.log.Info("order rejected", zap.String("detail", sd.ServerDetail()))
			return nil, &SubmissionError{Message: sd.ServerDetail(), Rejected: true, Err: err}
		}
		s.log.Warn("order submission failed", zap.Error(err))
		return nil, &SubmissionError{Message: err.Error(), Err: err}
	}

	s.log.Info("order placed",
		zap.Int64("order_id", receipt.OrderID),
		zap.String("total", receipt.Total.StringFixed(2)),
		zap.Int("pizzas", len(req.Pizzas)),
	)
	return receipt, nil
}

// BuildRequest checks the submission preconditions and builds the request
// body. Fields are trimmed; blank city and postal code take the defaults.
func BuildRequest(lines []cart.Line, customerName string, addr Address) (PlaceOrderRequest, error) {
	if len(lines) == 0 {
		return PlaceOrderRequest{}, &ValidationError{Field: "pizzas", Message: "select at least one pizza"}
	}

	name := strings.TrimSpace(customerName)
	addr = Address{
		StreetNumber: strings.TrimSpace(addr.StreetNumber),
		Street:       strings.TrimSpace(addr.Street),
		City:         strings.TrimSpace(addr.City),
		PostalCode:   strings.TrimSpace(addr.PostalCode),
	}

	switch {
	case name == "":
		return PlaceOrderRequest{}, &ValidationError{Field: "customer_name", Message: "is required"}
	case addr.StreetNumber == "":
		return PlaceOrderRequest{}, &ValidationError{Field: "street_number", Message: "is required"}
	case addr.Street == "":
		return PlaceOrderRequest{}, &ValidationError{Field: "street", Message: "is required"}
	}
	if addr.City == "" {
		addr.City = DefaultCity
	}
	if addr.PostalCode == "" {
		addr.PostalCode = DefaultPostalCode
	}

	pizzas := make([]PizzaRequest, len(lines))
	for i, l := range lines {
		pizzas[i] = PizzaRequest{
			Name:     l.Name,
			Size:     l.Size,
			Toppings: append([]string{}, l.Toppings...),
		}
	}

	return PlaceOrderRequest{
		CustomerName:    name,
		Pizzas:          pizzas,
		CustomerAddress: addr,
	}, nil
}

// IsValidationError reports whether err is a local precondition failure.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
