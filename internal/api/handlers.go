package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rebalance/pkg/rebalance"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getAccounts(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetAccounts()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) addAccount(w http.ResponseWriter, r *http.Request) {
	var payload addAccountPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.core.AddAccount(rebalance.Account{
		AccountID:   payload.AccountID,
		AccountName: payload.AccountName,
		Broker:      payload.Broker,
		AccountType: payload.AccountType,
	}); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "created"})
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	deleted, message, err := h.core.DeleteAccount(accountID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusConflict, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handler) getHoldings(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	result, err := h.core.GetHoldings(accountID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) upsertHolding(w http.ResponseWriter, r *http.Request) {
	var payload upsertHoldingPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity, err := rebalance.ParseDecimal(string(payload.Quantity))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	price, err := rebalance.ParseDecimal(string(payload.CurrentPrice))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	id, err := h.core.UpsertHolding(rebalance.UpsertHoldingRequest{
		Market:       payload.Market,
		Symbol:       payload.Symbol,
		Quantity:     quantity,
		CurrentPrice: price,
		Currency:     payload.Currency,
		AccountID:    payload.AccountID,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *handler) getHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	result, err := h.core.GetHolding(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) deleteHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	deleted, err := h.core.DeleteHolding(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "holding not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handler) getHoldingTags(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	result, err := h.core.GetHoldingTags(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) linkHoldingTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var payload linkTagPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.core.LinkHoldingTag(id, payload.TagID); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

func (h *handler) unlinkHoldingTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	removed, err := h.core.UnlinkHoldingTag(id, chi.URLParam(r, "tagID"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "link not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

func (h *handler) getTags(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetTags()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) addTag(w http.ResponseWriter, r *http.Request) {
	var payload addTagPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tag, err := h.core.AddTag(rebalance.AddTagRequest{
		Name:        payload.Name,
		Color:       payload.Color,
		Description: payload.Description,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *handler) getTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.core.GetTag(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *handler) updateTag(w http.ResponseWriter, r *http.Request) {
	var payload updateTagPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tag, err := h.core.UpdateTag(chi.URLParam(r, "id"), rebalance.UpdateTagRequest{
		Name:        payload.Name,
		Color:       payload.Color,
		Description: payload.Description,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.core.DeleteTag(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handler) getGroups(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetGroups()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var payload createGroupPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group, err := h.core.CreateGroup(rebalance.CreateGroupRequest{
		Name:         payload.Name,
		BaseCurrency: payload.BaseCurrency,
		TagIDs:       payload.TagIDs,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *handler) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.core.GetGroup(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	var payload updateGroupPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group, err := h.core.UpdateGroup(chi.URLParam(r, "id"), rebalance.UpdateGroupRequest{
		Name:         payload.Name,
		BaseCurrency: payload.BaseCurrency,
		TagIDs:       payload.TagIDs,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.core.DeleteGroup(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handler) getGroupTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.core.GetGroupTargets(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (h *handler) setGroupTargets(w http.ResponseWriter, r *http.Request) {
	var payload targetsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.core.SetGroupTargets(chi.URLParam(r, "id"), toTargetAllocations(payload.Targets)); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *handler) validateTargets(w http.ResponseWriter, r *http.Request) {
	var payload targetsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := rebalance.ValidateTargetAllocations(toTargetAllocations(payload.Targets)); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.ComputeRebalancingAnalysis(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	var payload recommendationPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := rebalance.ParseDecimal(string(payload.Amount))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.core.ComputeInvestmentRecommendation(chi.URLParam(r, "id"), amount)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationResponse{
		Amount:          amount.String(),
		Recommendations: result,
	})
}

func (h *handler) getAIAdvice(w http.ResponseWriter, r *http.Request) {
	var payload aiAdvicePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.core.GenerateRebalanceAdvice(r.Context(), rebalance.RebalanceAdviceRequest{
		BaseURL:      payload.BaseURL,
		APIKey:       payload.APIKey,
		Model:        payload.Model,
		GroupID:      chi.URLParam(r, "id"),
		CustomPrompt: payload.CustomPrompt,
	})
	if err != nil {
		h.logger.Error("ai rebalance advice failed",
			"group_id", chi.URLParam(r, "id"),
			"model", payload.Model,
			"base_url", payload.BaseURL,
			"err", err,
		)
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	result, err := h.core.GetOperationLogs(limit, offset)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func toTargetAllocations(payloads []targetAllocationPayload) []rebalance.TargetAllocation {
	targets := make([]rebalance.TargetAllocation, 0, len(payloads))
	for _, p := range payloads {
		targets = append(targets, rebalance.TargetAllocation{
			TagID:         p.TagID,
			TargetPercent: p.TargetPercent,
		})
	}
	return targets
}

type recommendationResponse struct {
	Amount          string                               `json:"amount"`
	Recommendations []rebalance.InvestmentRecommendation `json:"recommendations"`
}
