package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anjiri1684/tutor_marketplace/utils"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrUnsupportedCurrency is returned when Midtrans is asked to charge anything but IDR.
var ErrUnsupportedCurrency = errors.New("midtrans only charges in IDR")

// MidtransCoordinator authorizes through Snap and settles through the Core API.
// Authorization ids are Midtrans order ids. Midtrans takes whole rupiah, so
// amounts in minor units are converted on the way out.
type MidtransCoordinator struct {
	snap snap.Client
	core coreapi.Client
}

func NewMidtransCoordinator(serverKey, currency string, production bool) (*MidtransCoordinator, error) {
	if serverKey == "" {
		return nil, ErrNotConfigured
	}
	if !strings.EqualFold(currency, "idr") {
		return nil, ErrUnsupportedCurrency
	}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	m := &MidtransCoordinator{}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m, nil
}

func (m *MidtransCoordinator) Name() string { return "midtrans" }

func (m *MidtransCoordinator) Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	if req.Currency != "" && !strings.EqualFold(req.Currency, "idr") {
		return nil, ErrUnsupportedCurrency
	}
	amount := WholeRupiah(req.Amount)
	orderID := utils.PaymentReference("BK", req.BookingID)
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.PayerName,
			Email: req.PayerEmail,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.BookingID.String(),
			Price: amount,
			Qty:   1,
			Name:  truncate(req.Description, 50),
		}},
	}

	resp, merr := m.snap.CreateTransaction(snapReq)
	if merr != nil {
		return nil, fmt.Errorf("midtrans: create transaction: %s", merr.Error())
	}
	return &Authorization{ID: orderID, ClientSecret: resp.Token}, nil
}

func (m *MidtransCoordinator) CancelAuthorization(ctx context.Context, authorizationID string) error {
	if _, merr := m.core.CancelTransaction(authorizationID); merr != nil {
		return fmt.Errorf("midtrans: cancel %s: %s", authorizationID, merr.Error())
	}
	return nil
}

func (m *MidtransCoordinator) Refund(ctx context.Context, authorizationID string, amount int64) (string, error) {
	refundKey := authorizationID + "-RF-" + utils.RandomCode(4)
	req := &coreapi.RefundReq{
		RefundKey: refundKey,
		Amount:    WholeRupiah(amount),
		Reason:    "booking cancelled",
	}
	if _, merr := m.core.RefundTransaction(authorizationID, req); merr != nil {
		return "", fmt.Errorf("midtrans: refund %s: %s", authorizationID, merr.Error())
	}
	return refundKey, nil
}

func (m *MidtransCoordinator) Status(ctx context.Context, authorizationID string) (Status, error) {
	resp, merr := m.core.CheckTransaction(authorizationID)
	if merr != nil {
		return "", fmt.Errorf("midtrans: status %s: %s", authorizationID, merr.Error())
	}
	return MidtransStatus(resp.TransactionStatus, resp.FraudStatus), nil
}

// MidtransStatus maps a Midtrans transaction_status/fraud_status pair.
func MidtransStatus(transactionStatus, fraudStatus string) Status {
	switch transactionStatus {
	case "settlement":
		return StatusSucceeded
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return StatusSucceeded
		}
		return StatusPending
	case "cancel", "expire":
		return StatusCancelled
	case "deny", "failure":
		return StatusFailed
	default:
		return StatusPending
	}
}

// WholeRupiah converts an amount in sen to whole rupiah, rounding half up.
func WholeRupiah(minor int64) int64 {
	return (minor + 50) / 100
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
