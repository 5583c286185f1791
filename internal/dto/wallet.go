package dto

import (
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
)

// CreateWalletRequest defines the data needed to create a shared wallet.
type CreateWalletRequest struct {
	Name         string `json:"name" binding:"required"`
	CurrencyCode string `json:"currencyCode" binding:"required,currencycode"`
}

// WalletResponse defines the data returned for a shared wallet.
type WalletResponse struct {
	WalletID     string    `json:"walletID"`
	Name         string    `json:"name"`
	CurrencyCode string    `json:"currencyCode"`
	OwnerID      string    `json:"ownerID"`
	MemberIDs    []string  `json:"memberIDs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToWalletResponse converts a domain.Wallet to WalletResponse DTO.
func ToWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		WalletID:     w.WalletID,
		Name:         w.Name,
		CurrencyCode: w.CurrencyCode,
		OwnerID:      w.OwnerID,
		MemberIDs:    w.MemberIDs,
		CreatedAt:    w.CreatedAt,
	}
}

// ToWalletResponses maps a slice of domain wallets.
func ToWalletResponses(wallets []domain.Wallet) []WalletResponse {
	out := make([]WalletResponse, 0, len(wallets))
	for i := range wallets {
		out = append(out, ToWalletResponse(&wallets[i]))
	}
	return out
}
