package http

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

var cartCSVHeader = []string{"Tag_Serial_Number", "uid", "name", "sellingPrice"}

// GET /api/v1/session/qr.png
func (h *SessionHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	png, err := h.kiosk.QRCode(ctx)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		zap.L().Warn("failed to write qr code", zap.Error(err))
	}
}

// GET /api/v1/session/cart.csv
func (h *SessionHandler) CartCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.kiosk.Snapshot(ctx)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="cart.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	rows := make([][]string, 0, len(snap.Items)+1)
	rows = append(rows, cartCSVHeader)
	for _, item := range snap.Items {
		rows = append(rows, []string{strconv.Itoa(item.Position), item.UID, item.Name, item.Amount})
	}
	if err := cw.WriteAll(rows); err != nil {
		zap.L().Warn("failed to write cart csv", zap.Error(err))
	}
}
