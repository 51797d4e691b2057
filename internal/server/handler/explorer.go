package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/matchstake/internal/explorer"
)

// ExplorerHandler serves block-explorer links.
type ExplorerHandler struct {
	links  *explorer.Builder
	logger *slog.Logger
}

// NewExplorerHandler creates an ExplorerHandler.
func NewExplorerHandler(links *explorer.Builder, logger *slog.Logger) *ExplorerHandler {
	return &ExplorerHandler{links: links, logger: logger}
}

type linkResponse struct {
	Network string `json:"network"`
	URL     string `json:"url"`
}

// TxLink returns the explorer URL of a transaction.
// GET /api/explorer/{network}/tx/{hash}
func (h *ExplorerHandler) TxLink(w http.ResponseWriter, r *http.Request) {
	network := pathParam(r, "network")
	url, err := h.links.Tx(network, pathParam(r, "hash"))
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to build link")
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{Network: network, URL: url})
}

// AddressLink returns the explorer URL of an address.
// GET /api/explorer/{network}/address/{address}
func (h *ExplorerHandler) AddressLink(w http.ResponseWriter, r *http.Request) {
	network := pathParam(r, "network")
	url, err := h.links.Address(network, pathParam(r, "address"))
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to build link")
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{Network: network, URL: url})
}

// Networks lists the networks with a configured explorer.
// GET /api/explorer
func (h *ExplorerHandler) Networks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"networks": h.links.Networks()})
}
