// Package httpapi serves the ledger over HTTP with gin. Routes, request
// fields and the error envelope follow the public REST API; the token may
// be passed as a query parameter, a JSON body field or a Bearer header.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/buildinfo"
	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"github.com/dmitrijs2005/pocketledger/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	auth        *services.AuthService
	ledger      *services.LedgerService
	accounts    *services.AccountService
	log         logging.Logger
	development bool
}

func NewHandler(as *services.AuthService, ls *services.LedgerService, acc *services.AccountService, log logging.Logger, development bool) *Handler {
	return &Handler{
		auth:        as,
		ledger:      ls,
		accounts:    acc,
		log:         log.With("module", "http_server"),
		development: development,
	}
}

// bindJSON decodes the request body into obj. An empty body leaves obj at
// its zero value so that the service reports the missing fields.
func bindJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindBodyWith(obj, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
		return common.ErrBadRequest.Wrap(err)
	}
	return nil
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, rpc.PingResponse{App: buildinfo.AppName, Version: buildinfo.Version()})
}

func (h *Handler) getToken(c *gin.Context) {
	var req rpc.GetTokenRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		h.respondError(c, common.ErrCredentialsMissing)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.GetTokenResponse{Token: session.Token, ExpiresIn: int64(session.ExpiresIn / time.Second)})
}

func (h *Handler) revoke(c *gin.Context) {
	if err := h.accounts.RevokeSessions(c.Request.Context(), currentUser(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.SuccessResponse{Success: true})
}

func (h *Handler) newUser(c *gin.Context) {
	var req rpc.NewUserRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.accounts.Create(c.Request.Context(), services.CreateAccountRequest{
		Username:       req.Username,
		Password:       req.Password,
		RecoveryMethod: req.RecoveryMethod,
		Email:          req.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.PhraseResponse{Success: true, Phrase: res.Phrase})
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.accounts.Settings(currentUser(c)))
}

func (h *Handler) applySettings(c *gin.Context) {
	raw := map[string]any{}
	if err := bindJSON(c, &raw); err != nil {
		h.respondError(c, err)
		return
	}
	// the token may travel in the same object
	delete(raw, "token")

	patch, err := services.ParseSettingsPatch(raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	phrase, err := h.accounts.ApplySettings(c.Request.Context(), currentUser(c), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.PhraseResponse{Success: true, Phrase: phrase})
}

func (h *Handler) balance(c *gin.Context) {
	balance, err := h.ledger.Balance(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.BalanceResponse{Balance: balance})
}

func (h *Handler) transactions(c *gin.Context) {
	list, err := h.ledger.Transactions(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]rpc.Transaction, 0, len(list))
	for _, t := range list {
		out = append(out, rpc.Transaction{ID: t.ID, Sender: t.Sender, Receiver: t.Receiver, Value: t.Value, Timestamp: t.Timestamp})
	}
	c.JSON(http.StatusOK, rpc.TransactionsResponse{Transactions: out})
}

// amountFrom validates the receiver/value pair shared by send and addMoney.
func amountFrom(receiver string, value rpc.Amount) (int64, error) {
	if receiver == "" || value == "" {
		return 0, common.ErrBadRequest
	}
	return services.ParseAmount(string(value))
}

func (h *Handler) send(c *gin.Context) {
	var req rpc.SendRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	value, err := amountFrom(req.Receiver, req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}

	balance, err := h.ledger.Transfer(c.Request.Context(), currentUser(c), req.Receiver, value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.SendResponse{Success: true, Balance: balance})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req rpc.ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), currentUser(c), req.OldPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.SuccessResponse{Success: true})
}

// confirmEmail serves both the emailed GET link and a JSON POST.
func (h *Handler) confirmEmail(c *gin.Context) {
	var req rpc.ConfirmEmailRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	if t := c.Query("token"); t != "" {
		req.Token = t
	}

	if err := h.accounts.ConfirmEmail(c.Request.Context(), req.Token); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.SuccessResponse{Success: true})
}

func (h *Handler) addMoney(c *gin.Context) {
	var req rpc.AddMoneyRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}
	value, err := amountFrom(req.Receiver, req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}

	admin := currentUser(c)
	if err := h.ledger.CreditFromAdmin(c.Request.Context(), admin.Username, req.Receiver, value); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.SuccessResponse{Success: true})
}
