package payment

import (
	"net/url"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Params — параметры возврата от платёжного провайдера (query string редиректа).
type Params map[string]string

// ParamsFromQuery берёт первое значение каждого параметра.
func ParamsFromQuery(values url.Values) Params {
	params := make(Params, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}

// Get возвращает значение без пробелов по краям.
func (p Params) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// Параметры, по которым провайдер определяется без явного provider.
var providerMarkers = []struct {
	provider domain.PaymentProvider
	params   []string
}{
	{provider: domain.PaymentProviderStripe, params: []string{"payment_intent", "payment_intent_client_secret", "session_id"}},
	{provider: domain.PaymentProviderVipps, params: []string{"vipps_reference", "reference"}},
}

// ResolveProvider определяет провайдера один раз на входе в сверку:
// сначала по явному параметру provider, затем по характерным параметрам.
func ResolveProvider(params Params) (domain.PaymentProvider, error) {
	if explicit := params.Get("provider"); explicit != "" {
		provider := domain.PaymentProvider(strings.ToLower(explicit))
		if !provider.Valid() {
			return "", domain.ErrUnknownProvider
		}
		return provider, nil
	}

	for _, marker := range providerMarkers {
		for _, name := range marker.params {
			if params.Get(name) != "" {
				return marker.provider, nil
			}
		}
	}
	return "", domain.ErrUnknownProvider
}
