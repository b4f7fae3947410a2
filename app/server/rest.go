package server

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"migrator/app/auth"
	"migrator/app/migration"
	"migrator/app/models"
	"migrator/app/notifier"
	"migrator/app/wallet"
	"migrator/pkg/web"
)

const (
	apiPrefix       = "/api/v1"
	signatureHeader = "x-signature"
)

// Rest is a gateway for incoming HTTP requests
type Rest struct {
	Router    chi.Router
	Wallet    wallet.Service
	Notifier  notifier.Service
	Auth      auth.Service
	Migration migration.Service
}

func (s *Rest) Route() {
	s.Router.Route(apiPrefix, func(r chi.Router) {
		// semi-public routes (signature required)
		r.Route("/wallet", func(r chi.Router) {
			r.Post("/", s.createWallet)
			r.Get("/{address}", s.getWallet)
		})

		// private routes
		r.Group(func(r chi.Router) {
			r.Use(s.Auth.GetJWTVerifier(), s.Auth.GetJWTAuthenticator())

			r.Get("/subscribe", s.subscribe)

			r.Route("/migration", func(r chi.Router) {
				r.Get("/assets", s.listAssets)
				r.Post("/assets", s.addAsset)
				r.Delete("/assets", s.removeAsset)

				r.Post("/eligibility", s.checkEligibility)
				r.Post("/estimate", s.estimateTransfers)
				r.Post("/start", s.startMigration)
				r.Post("/check", s.checkTransactions)
				r.Get("/status", s.migrationStatus)
			})

			r.Post("/balance", s.getBalance)
		})
	})
}

func (s *Rest) createWallet(w http.ResponseWriter, r *http.Request) {
	in := new(models.NewWallet)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		web.RenderError(w, r, err)
		return
	}
	in.Signature = r.Header.Get(signatureHeader)

	out, err := s.Wallet.CreateWallet(r.Context(), in)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) getWallet(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	in := &models.GetWallet{Address: address}
	in.Signature = r.Header.Get(signatureHeader)

	out, err := s.Wallet.GetWallet(r.Context(), in)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) subscribe(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	if err := s.Notifier.Subscribe(r.Context(), &models.NewSubscription{
		ClientID:       accessToken.Wallet,
		ResponseWriter: w,
		Request:        r,
	}); err != nil {
		web.RenderError(w, r, err)
		return
	}
}

func (s *Rest) listAssets(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	out, err := s.Migration.ListAssets(r.Context(), accessToken.Wallet)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) addAsset(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	in := new(models.AddAsset)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		web.RenderError(w, r, err)
		return
	}
	in.WalletAddress = accessToken.Wallet

	out, err := s.Migration.AddAsset(r.Context(), in)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) removeAsset(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	in := new(models.RemoveAsset)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		web.RenderError(w, r, err)
		return
	}
	in.WalletAddress = accessToken.Wallet

	out, err := s.Migration.RemoveAsset(r.Context(), in)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

type supportedAssets struct {
	Assets []*models.AssetData `json:"assets"`
}

func (s *Rest) checkEligibility(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	in := new(supportedAssets)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		web.RenderError(w, r, err)
		return
	}

	out, err := s.Migration.CheckEligibility(r.Context(), accessToken.Wallet, in.Assets)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) estimateTransfers(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	if err := s.Migration.EstimateTransfers(r.Context(), accessToken.Wallet); err != nil {
		web.RenderError(w, r, err)
		return
	}

	out, err := s.Migration.ListAssets(r.Context(), accessToken.Wallet)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) startMigration(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	in := new(models.StartMigration)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		web.RenderError(w, r, err)
		return
	}
	in.WalletAddress = accessToken.Wallet

	out, err := s.Migration.SignTransfers(r.Context(), in)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) checkTransactions(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	if err := s.Migration.CheckTransactions(r.Context(), accessToken.Wallet); err != nil {
		web.RenderError(w, r, err)
		return
	}

	out, err := s.Migration.MigrationStatus(r.Context(), accessToken.Wallet)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) migrationStatus(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	out, err := s.Migration.MigrationStatus(r.Context(), accessToken.Wallet)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) getBalance(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	in := new(supportedAssets)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		web.RenderError(w, r, err)
		return
	}

	out, err := s.Wallet.GetBalance(r.Context(), accessToken.Wallet, in.Assets)
	if err != nil {
		web.RenderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}
