package common

// HttpResponse is the envelope of every API response.
type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Code   *string `json:"code,omitempty"`
	Result *T      `json:"result,omitempty"`
}

// Page is a paginated list with the total number of items available.
type Page[T any] struct {
	List  []T    `json:"list"`
	Total uint64 `json:"total"`
}
