package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/seqbench/seqbench/pkg/models"
)

// serializationKeys are the query parameters consumed by
// parseSerializationParams; they are excluded from residual passthrough.
var serializationKeys = []string{"view", "keys"}

// parseSerializationParams decodes the view/keys serialization options.
func parseSerializationParams(c echo.Context) models.SerializationParams {
	params := models.SerializationParams{
		View:        c.QueryParam("view"),
		DefaultView: "summary",
	}
	if keys := c.QueryParam("keys"); keys != "" {
		params.Keys = strings.Split(keys, ",")
	}
	return params
}

// parseFilterQueryParams decodes the generic q/qv filter pairs and paging
// options of list endpoints.
func parseFilterQueryParams(c echo.Context) (models.FilterQueryParams, error) {
	values := c.QueryParams()
	filters := models.FilterQueryParams{
		Q:     values["q"],
		Qv:    values["qv"],
		Order: c.QueryParam("order"),
	}
	var err error
	if filters.Offset, err = intQueryParam(c, "offset"); err != nil {
		return filters, err
	}
	if filters.Limit, err = intQueryParam(c, "limit"); err != nil {
		return filters, err
	}
	return filters, nil
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, raw))
	}
	return value, nil
}

func boolQueryParam(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, raw))
	}
	return value, nil
}

// sourceQueryParam decodes the hda_ldda source-kind flag, defaulting to hda.
func sourceQueryParam(c echo.Context) (models.DatasetSource, error) {
	raw := c.QueryParam("hda_ldda")
	if raw == "" {
		return models.DatasetSourceHDA, nil
	}
	source := models.DatasetSource(raw)
	if !source.Valid() {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid hda_ldda: %q", raw))
	}
	return source, nil
}

// residualQueryParams returns every query parameter except the declared
// ones, verbatim. Endpoints with open-ended options pass the residue through
// to the service so the routing layer never loses a parameter it does not
// know about.
func residualQueryParams(c echo.Context, declared ...string) url.Values {
	exclude := make(map[string]struct{}, len(declared))
	for _, key := range declared {
		exclude[key] = struct{}{}
	}
	extra := url.Values{}
	for key, values := range c.QueryParams() {
		if _, ok := exclude[key]; ok {
			continue
		}
		extra[key] = values
	}
	return extra
}

// permission payload aliases, in lookup order. Clients historically send
// either the plain or the bracketed form.
var permissionAliases = map[string][]string{
	"access": {"access", "access_ids[]"},
	"manage": {"manage", "manage_ids[]"},
	"modify": {"modify", "modify_ids[]"},
}

// normalizePermissionsPayload reduces the accepted permission payload shapes
// to the canonical update structure.
func normalizePermissionsPayload(payload map[string]any) (models.UpdateDatasetPermissionsPayload, error) {
	normalized := models.UpdateDatasetPermissionsPayload{Action: "set_permissions"}
	if action, ok := payload["action"].(string); ok && action != "" {
		normalized.Action = action
	}

	for action, aliases := range permissionAliases {
		ids, err := roleIDsFromAliases(payload, aliases)
		if err != nil {
			return normalized, err
		}
		switch action {
		case "access":
			normalized.AccessIDs = ids
		case "manage":
			normalized.ManageIDs = ids
		case "modify":
			normalized.ModifyIDs = ids
		}
	}
	return normalized, nil
}

// roleIDsFromAliases extracts a role id list stored under any of the given
// keys. A single string is accepted as a one-element list.
func roleIDsFromAliases(payload map[string]any, aliases []string) ([]string, error) {
	for _, key := range aliases {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return []string{v}, nil
		case []any:
			ids := make([]string, 0, len(v))
			for _, item := range v {
				id, ok := item.(string)
				if !ok {
					return nil, echo.NewHTTPError(http.StatusBadRequest,
						fmt.Sprintf("role ids under %q must be strings", key))
				}
				ids = append(ids, id)
			}
			return ids, nil
		default:
			return nil, echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("unsupported role id shape under %q", key))
		}
	}
	return nil, nil
}
