package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/web3-frozen/miner-dashboard/internal/metrics"
	"github.com/web3-frozen/miner-dashboard/internal/monitor"
	"github.com/web3-frozen/miner-dashboard/internal/settings"
)

type credentialsView struct {
	PoolAPIKey    string          `json:"pool_api_key"`
	WalletAddress string          `json:"wallet_address"`
	Enabled       map[string]bool `json:"enabled"`
}

func viewOf(c monitor.Credentials) credentialsView {
	return credentialsView{
		PoolAPIKey:    mask(c.PoolAPIKey),
		WalletAddress: mask(c.WalletAddress),
		Enabled: map[string]bool{
			monitor.SourcePool:      c.PoolAPIKey != "",
			monitor.SourceLedger:    c.WalletAddress != "",
			monitor.SourceSentiment: true,
		},
	}
}

// mask keeps only the last four characters.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func GetCredentials(reg *monitor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(viewOf(reg.Credentials()))
	}
}

// PutCredentials reconfigures the registry. The change applies from the next
// cycle and is persisted to the settings store.
func PutCredentials(reg *monitor.Registry, store settings.Store, logger *slog.Logger) http.HandlerFunc {
	type request struct {
		PoolAPIKey    *string `json:"pool_api_key"`
		WalletAddress *string `json:"wallet_address"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.PoolAPIKey == nil && req.WalletAddress == nil {
			http.Error(w, `{"error":"pool_api_key or wallet_address required"}`, http.StatusBadRequest)
			return
		}

		updates := []struct {
			id    monitor.CredentialID
			value *string
		}{
			{monitor.CredentialPoolAPIKey, req.PoolAPIKey},
			{monitor.CredentialWalletAddress, req.WalletAddress},
		}
		for _, u := range updates {
			if u.value == nil {
				continue
			}
			if err := reg.SetCredential(u.id, *u.value); err != nil {
				http.Error(w, `{"error":"invalid credential"}`, http.StatusBadRequest)
				return
			}
			metrics.CredentialUpdatesTotal.WithLabelValues(string(u.id)).Inc()
			logger.Info("credential updated", "credential", u.id, "enabled", *u.value != "")
		}

		creds := reg.Credentials()
		if err := settings.SaveCredentials(r.Context(), store, creds); err != nil {
			logger.Error("failed to persist credentials", "error", err)
			http.Error(w, `{"error":"failed to persist credentials"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(viewOf(creds))
	}
}
