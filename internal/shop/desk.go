package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"finitefield.org/webshop/internal/rpc"
)

const featuredProductLimit = 20

// Notice is a modal message shown in the desk UI.
type Notice struct {
	Title     string
	Indicator string
	// Message is HTML.
	Message string
}

// ItemActions describes the custom buttons of an Item form.
type ItemActions struct {
	ItemCode  string
	ItemName  string
	Published bool
}

// ActionLabel is the button offered for the item.
func (a ItemActions) ActionLabel() string {
	if a.Published {
		return "View Website Item"
	}
	return "Publish in Website"
}

// PublishResult is the website item created for an item.
type PublishResult struct {
	Name     string
	ItemName string
}

// URL is the desk form of the created website item.
func (r PublishResult) URL() string {
	return WebsiteItemURL(r.Name)
}

// Notice is the confirmation shown after publishing.
func (r PublishResult) Notice() Notice {
	return Notice{
		Title:     "Published",
		Indicator: "green",
		Message: fmt.Sprintf("Website Item %s has been created.",
			fmt.Sprintf(`<a href="%s" class="strong">%s</a>`, html.EscapeString(r.URL()), html.EscapeString(r.ItemName))),
	}
}

// WebsiteItemRef is a website item offered by the featured product picker.
type WebsiteItemRef struct {
	Name     string `json:"name"`
	ItemCode string `json:"item_code"`
	ItemName string `json:"web_item_name"`
	Route    string `json:"route"`
}

// FeaturedProductRoute returns the storefront page opened by a homepage featured product's
// "view" button. ok is false unless both the item code and route are set.
func FeaturedProductRoute(itemCode, route string) (target string, ok bool) {
	if strings.TrimSpace(itemCode) == "" || strings.TrimSpace(route) == "" {
		return "", false
	}
	return "/" + strings.TrimSpace(route), true
}

// DeskService backs the Item and Homepage form customizations.
type DeskService struct {
	backend Caller
}

// NewDeskService constructs the service.
func NewDeskService(backend Caller) *DeskService {
	return &DeskService{backend: backend}
}

func (s *DeskService) item(ctx context.Context, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: missing item", ErrInvalidInput)
	}
	var doc map[string]any
	if err := s.backend.Call(ctx, rpc.MethodGet, map[string]any{
		"doctype": DocTypeItem,
		"name":    name,
	}, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ItemActions loads the item and reports which action button it gets.
func (s *DeskService) ItemActions(ctx context.Context, name string) (ItemActions, error) {
	doc, err := s.item(ctx, name)
	if err != nil {
		return ItemActions{}, err
	}
	actions := ItemActions{
		ItemCode:  strings.TrimSpace(name),
		Published: docFlag(doc, "published_in_website"),
	}
	if itemName, ok := doc["item_name"].(string); ok {
		actions.ItemName = itemName
	}
	return actions, nil
}

// PublishItem creates a website item from the item document.
func (s *DeskService) PublishItem(ctx context.Context, name string) (PublishResult, error) {
	doc, err := s.item(ctx, name)
	if err != nil {
		return PublishResult{}, err
	}

	var created []string
	if err := s.backend.Call(ctx, rpc.MethodMakeWebsiteItem, map[string]any{"doc": doc}, &created); err != nil {
		return PublishResult{}, err
	}
	if len(created) < 2 || strings.TrimSpace(created[0]) == "" {
		return PublishResult{}, ErrEmptyRecordName
	}
	return PublishResult{Name: created[0], ItemName: created[1]}, nil
}

// FindWebsiteItem returns the name of the website item listing itemCode.
func (s *DeskService) FindWebsiteItem(ctx context.Context, itemCode string) (string, error) {
	var found struct {
		Name string `json:"name"`
	}
	if err := s.backend.Call(ctx, rpc.MethodGetValue, map[string]any{
		"doctype":   DocTypeWebsiteItem,
		"filters":   map[string]any{"item_code": strings.TrimSpace(itemCode)},
		"fieldname": "name",
	}, &found); err != nil {
		if rpc.IsNotFound(err) {
			return "", ErrWebsiteItemNotFound
		}
		return "", err
	}
	if strings.TrimSpace(found.Name) == "" {
		return "", ErrWebsiteItemNotFound
	}
	return found.Name, nil
}

// FeaturedProductOptions lists the website items a homepage may feature. Only published items
// are offered; txt narrows by name or item code.
func (s *DeskService) FeaturedProductOptions(ctx context.Context, txt string) ([]WebsiteItemRef, error) {
	args := map[string]any{
		"doctype":           DocTypeWebsiteItem,
		"filters":           map[string]any{"published": 1},
		"fields":            []string{"name", "item_code", "web_item_name", "route"},
		"limit_page_length": featuredProductLimit,
	}
	if txt = strings.TrimSpace(txt); txt != "" {
		pattern := "%" + txt + "%"
		args["or_filters"] = [][]string{
			{"web_item_name", "like", pattern},
			{"item_code", "like", pattern},
		}
	}

	var refs []WebsiteItemRef
	if err := s.backend.Call(ctx, rpc.MethodGetList, args, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func docFlag(doc map[string]any, key string) bool {
	raw, err := json.Marshal(doc[key])
	if err != nil {
		return false
	}
	var flag flexBool
	if err := json.Unmarshal(raw, &flag); err != nil {
		return false
	}
	return bool(flag)
}
