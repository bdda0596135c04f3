package extraction

import (
	"bytes"
	"encoding/json"
	"strings"

	"bakeslip/model"

	"google.golang.org/genai"
)

const extractionPrompt = `Analyze the attached bakery order document (an image, PDF, Word document or CSV text). It is one of two kinds:
1. A main "Slice Order" list with a table of many routes/locations.
2. A production slip for a single route (a page titled with the route name, e.g. "FINNERTY").

Extract the 'Issue Date' if it is present (usually at the top right of the main list).

For a main list, return one order per table row with the route name, the full product description and the number from the 'Trays' column.

For a production slip, the route is the page title, the product is the "Product name" field and the "Quantity" field maps to 'trays'.

Ignore handwritten ticks or circles. Return a single JSON object that follows the schema. A single slip yields exactly one order.
If the issue date is not on the document, return an empty string for 'issueDate'.`

// responseSchema は抽出結果のスキーマです。
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"issueDate": {
				Type:        genai.TypeString,
				Description: "The issue date from the top of the document formatted as 'DAY DD MMM'. Usually only present on a main list.",
			},
			"orders": {
				Type:        genai.TypeArray,
				Description: "All orders found on the document.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"route": {
							Type:        genai.TypeString,
							Description: "The route or location name (e.g. ATHLONE, FINNERTY).",
						},
						"product": {
							Type:        genai.TypeString,
							Description: `The full product name (e.g. B441 4" Regular Tray 60).`,
						},
						"trays": {
							Type:        genai.TypeInteger,
							Description: "The number of trays for that product and route.",
						},
					},
					Required: []string{"route", "product", "trays"},
				},
			},
		},
		Required: []string{"issueDate", "orders"},
	}
}

type wireOrder struct {
	Route   *string `json:"route"`
	Product *string `json:"product"`
	Trays   *int    `json:"trays"`
}

type wireResponse struct {
	IssueDate *string      `json:"issueDate"`
	Orders    *[]wireOrder `json:"orders"`
}

// DecodeResponse はサービスのJSON応答をスキーマに照らして検証し、OrderData に変換します。
// スキーマに合わない応答は受け入れません。
func DecodeResponse(text string) (model.OrderData, error) {
	if strings.TrimSpace(text) == "" {
		return model.OrderData{}, ErrEmptyResponse
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()

	var wire wireResponse
	if err := dec.Decode(&wire); err != nil {
		return model.OrderData{}, malformed("%v", err)
	}
	if dec.More() {
		return model.OrderData{}, malformed("trailing data after JSON object")
	}
	if wire.IssueDate == nil {
		return model.OrderData{}, malformed("missing issueDate")
	}
	if wire.Orders == nil {
		return model.OrderData{}, malformed("missing orders")
	}

	data := model.OrderData{
		IssueDate: strings.TrimSpace(*wire.IssueDate),
		Orders:    make([]model.Order, 0, len(*wire.Orders)),
	}
	for i, o := range *wire.Orders {
		if o.Route == nil || o.Product == nil || o.Trays == nil {
			return model.OrderData{}, malformed("order %d is missing route, product or trays", i+1)
		}
		data.Orders = append(data.Orders, model.Order{
			Route:   *o.Route,
			Product: *o.Product,
			Trays:   *o.Trays,
		})
	}
	return data, nil
}
