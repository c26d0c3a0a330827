package shop

import "github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"

// Prompt names the reply the transport should render.
type Prompt string

const (
	// PromptNone means the event was ignored and nothing should be sent.
	PromptNone            Prompt = "none"
	PromptWelcome         Prompt = "welcome"
	PromptCategories      Prompt = "categories"
	PromptProducts        Prompt = "products"
	PromptNoProducts      Prompt = "no_products"
	PromptProductNotFound Prompt = "product_not_found"
	PromptAdded           Prompt = "added"
	PromptCart            Prompt = "cart"
	PromptCartEmpty       Prompt = "cart_empty"
	PromptCartCleared     Prompt = "cart_cleared"
	PromptLocationRequest Prompt = "location_request"
	PromptReceiptOffer    Prompt = "receipt_offer"
	PromptReceipt         Prompt = "receipt"
	PromptOrderCancelled  Prompt = "order_cancelled"
	PromptLocationSaved   Prompt = "location_saved"
	PromptAddressSaved    Prompt = "address_saved"
	PromptSearchQuery     Prompt = "search_query"
	PromptNothingFound    Prompt = "nothing_found"
	PromptStats           Prompt = "stats"
	PromptFailure         Prompt = "failure"
)

// Stats summarises the shop for operators.
type Stats struct {
	Products    int
	ActiveCarts int
}

// Response is the transport-independent result of one controller operation.
// Only the fields relevant to Prompt are set.
type Response struct {
	Prompt Prompt

	Categories []domain.Category
	Category   domain.Category
	Query      string
	Products   []domain.Product

	Product  *domain.Product
	Quantity int

	Cart *domain.Cart

	Order    *domain.Order
	Document []byte
	FileName string

	Stats Stats
}

// Outcome maps the prompt onto the log outcome vocabulary.
func (r Response) Outcome() string {
	switch r.Prompt {
	case PromptNone:
		return "skip"
	case PromptNoProducts, PromptNothingFound, PromptCartEmpty:
		return "empty"
	case PromptProductNotFound:
		return "not_found"
	case PromptFailure:
		return "fail"
	default:
		return "ok"
	}
}
