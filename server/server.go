// Package server exposes the crafting engine over HTTP and streams the
// audit journal to websocket subscribers.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pflow-xyz/go-forge/atom"
	"github.com/pflow-xyz/go-forge/criteria"
	"github.com/pflow-xyz/go-forge/forge"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/ledger"
	"github.com/pflow-xyz/go-forge/trait"
)

// Server handles HTTP requests against one engine instance.
type Server struct {
	engine *forge.Engine
	feed   *Feed
	log    *slog.Logger
	tracer trace.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithFeed attaches a live event feed served on /ws. The feed must be
// the one wired into the engine's journal via Broadcast.
func WithFeed(feed *Feed) Option {
	return func(s *Server) { s.feed = feed }
}

// New creates a server around an engine.
func New(engine *forge.Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		tracer: otel.Tracer("go-forge/server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.traced("health", s.handleHealth))

	mux.HandleFunc("GET /api/items", s.traced("items.list", s.handleListItems))
	mux.HandleFunc("POST /api/items", s.traced("items.create", s.handleCreateItem))
	mux.HandleFunc("GET /api/items/{id}", s.traced("items.get", s.handleGetItem))
	mux.HandleFunc("PUT /api/items/{id}", s.traced("items.update", s.handleUpdateItem))
	mux.HandleFunc("POST /api/items/{id}/freeze", s.traced("items.freeze", s.handleFreezeItem))
	mux.HandleFunc("POST /api/items/{id}/admin", s.traced("items.admin", s.handleSetItemAdmin))
	mux.HandleFunc("GET /api/items/{id}/stats", s.traced("items.stats", s.handleItemStats))

	mux.HandleFunc("GET /api/atoms", s.traced("atoms.list", s.handleListAtoms))
	mux.HandleFunc("POST /api/atoms", s.traced("atoms.register", s.handleRegisterAtom))
	mux.HandleFunc("PUT /api/atoms/{id}/props", s.traced("atoms.props", s.handleSetAtomProps))

	mux.HandleFunc("GET /api/creation", s.traced("creation.get", s.handleGetCreation))
	mux.HandleFunc("POST /api/creation", s.traced("creation.set", s.handleSetCreation))
	mux.HandleFunc("POST /api/mint", s.traced("mint", s.handleMint))

	mux.HandleFunc("POST /api/craft", s.traced("craft", s.handleCraft))
	mux.HandleFunc("POST /api/use", s.traced("use", s.handleUse))
	mux.HandleFunc("POST /api/consume", s.traced("consume", s.handleConsume))
	mux.HandleFunc("POST /api/transfer", s.traced("transfer", s.handleTransfer))
	mux.HandleFunc("POST /api/approvals", s.traced("approvals", s.handleApproval))

	mux.HandleFunc("GET /api/tokens/{id}", s.traced("tokens.get", s.handleGetToken))
	mux.HandleFunc("GET /api/owners/{owner}/tokens", s.traced("owners.tokens", s.handleOwnedTokens))
	mux.HandleFunc("GET /api/balances", s.traced("balances", s.handleBalance))
	mux.HandleFunc("GET /api/journal", s.traced("journal", s.handleJournal))

	if s.feed != nil {
		mux.Handle("GET /ws", s.feed)
	}

	return mux
}

// traced wraps a handler in a span. Without a registered provider the
// tracer is a no-op.
func (s *Server) traced(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), name)
		defer span.End()
		h(w, r.WithContext(ctx))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.feed != nil {
		clients = s.feed.Clients()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"items":   len(s.engine.Items()),
		"clients": clients,
	})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Items())
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, err := s.engine.CreateItem(r.Context(), req.Caller, req.Item)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	cid, _ := s.engine.ItemCID(id)
	writeJSON(w, http.StatusCreated, createItemResponse{ID: id, CID: cid})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	it, ok := s.engine.Item(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", forge.ErrItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req createItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.UpdateItem(r.Context(), req.Caller, id, req.Item); err != nil {
		s.writeEngineError(w, err)
		return
	}
	cid, _ := s.engine.ItemCID(id)
	writeJSON(w, http.StatusOK, createItemResponse{ID: id, CID: cid})
}

func (s *Server) handleFreezeItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.FreezeItem(r.Context(), req.Caller, id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetItemAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req adminRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.SetItemAdmin(r.Context(), req.Caller, id, req.NewAdmin); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItemStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if _, ok := s.engine.Item(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", forge.ErrItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Stats(id))
}

func (s *Server) handleListAtoms(w http.ResponseWriter, r *http.Request) {
	defs := s.engine.Atoms().All()
	out := make([]atomView, len(defs))
	for i, def := range defs {
		out[i] = atomViewFrom(def)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegisterAtom(w http.ResponseWriter, r *http.Request) {
	var req registerAtomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Atom == nil {
		writeError(w, http.StatusBadRequest, "bad_request", atom.ErrNilDef)
		return
	}
	id, err := parseID(req.Atom.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	def := &atom.Def{ID: id, Name: req.Atom.Name}
	if len(req.Atom.Props) > 0 {
		def.Props = trait.FromEntries(req.Atom.Props)
	}
	if err := s.engine.RegisterAtom(r.Context(), req.Caller, def); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, atomViewFrom(def))
}

func (s *Server) handleSetAtomProps(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req atomPropsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.SetAtomProps(r.Context(), req.Caller, id, req.Props); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCreation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, creationResponse{Enabled: s.engine.CreationEnabled()})
}

func (s *Server) handleSetCreation(w http.ResponseWriter, r *http.Request) {
	var req creationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.SetCreationEnabled(r.Context(), req.Caller, req.Enabled); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creationResponse{Enabled: req.Enabled})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.MintResource(r.Context(), req.Caller, req.Owner, id, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCraft(w http.ResponseWriter, r *http.Request) {
	var req craftRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	variable, err := parseIDs(req.Variable)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	unique, err := parseIDs(req.Unique)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := s.engine.Craft(r.Context(), forge.CraftRequest{
		Caller:   req.Caller,
		ItemID:   req.ItemID,
		Amount:   req.Amount,
		Variable: variable,
		Unique:   unique,
		Aux:      req.Aux,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, craftResponseFrom(res))
}

func (s *Server) handleUse(w http.ResponseWriter, r *http.Request) {
	var req useRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, err := parseID(req.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := s.engine.Use(r.Context(), req.Caller, id, req.Aux)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, useResponseFrom(out))
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.engine.Consume(r.Context(), req.Caller, req.Owner, req.ItemID, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	amount := req.Amount
	if amount == nil {
		amount = uint256.NewInt(1)
	}
	if err := s.engine.Transfer(r.Context(), req.Caller, req.From, req.To, id, amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var err error
	switch req.Scope {
	case "all":
		err = s.engine.SetApprovalForAll(r.Context(), req.Caller, req.Operator, req.Approved)
	case "item":
		err = s.engine.SetItemApproval(r.Context(), req.Caller, req.Operator, req.ItemID, req.Approved)
	case "token":
		var id *uint256.Int
		id, err = parseID(req.TokenID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		err = s.engine.SetTokenApproval(r.Context(), req.Caller, req.Operator, id, req.Approved)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("scope must be all, item, or token"))
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	info, err := s.engine.Token(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleOwnedTokens(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	ids := s.engine.TokensOf(owner)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = formatID(id)
	}
	writeJSON(w, http.StatusOK, ownedTokensResponse{Owner: owner, Tokens: tokens})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	idStr := r.URL.Query().Get("id")
	if owner == "" || idStr == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("owner and id query parameters required"))
		return
	}
	id, err := parseID(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	bal := s.engine.BalanceOf(owner, id)
	writeJSON(w, http.StatusOK, balanceResponse{
		Owner:   owner,
		ID:      formatID(id),
		Balance: bal.Dec(),
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := journal.Filter{Stream: q.Get("stream")}
	for _, t := range q["type"] {
		f.Types = append(f.Types, journal.EventType(t))
	}
	if v := q.Get("from"); v != "" {
		from, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		f.FromSeq = from
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		f.Limit = limit
	}
	events, err := s.engine.Journal().ReadAll(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if events == nil {
		events = []*journal.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// writeEngineError maps engine errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "err", err)
	}
	writeError(w, status, code, err)
}

// statusFor classifies an engine error: missing state, denied callers,
// state conflicts, and rule rejections each get their own status.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, forge.ErrItemNotFound),
		errors.Is(err, forge.ErrTokenNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, forge.ErrNotAdmin),
		errors.Is(err, forge.ErrNotAuthorized),
		errors.Is(err, forge.ErrCreationDisabled):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, forge.ErrFrozen),
		errors.Is(err, forge.ErrIDCollision),
		errors.Is(err, forge.ErrDestroyed),
		errors.Is(err, forge.ErrReentrant):
		return http.StatusConflict, "conflict"
	case errors.Is(err, forge.ErrCraftVetoed),
		errors.Is(err, forge.ErrTierRange),
		errors.Is(err, forge.ErrTierTooLow),
		errors.Is(err, forge.ErrWrongOrigin),
		errors.Is(err, forge.ErrMissingResource),
		errors.Is(err, forge.ErrSupplyOverflow),
		errors.Is(err, criteria.ErrNotMet),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrTransferVetoed):
		return http.StatusUnprocessableEntity, "rejected"
	default:
		return http.StatusBadRequest, "bad_request"
	}
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, apiError{Code: code, Error: err.Error()})
}

func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}
