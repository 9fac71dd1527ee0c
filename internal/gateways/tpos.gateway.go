package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/valyala/fasthttp"
)

const platformTPOS = "tpos"

// PartnerBatchSize is the number of phones TPOS accepts per partner lookup.
const PartnerBatchSize = 10

var ErrTPOSNotConfigured = errors.New("tpos is not configured")

// CredentialsFunc resolves the active TPOS base url and token. It is called per request
// so a credential change in settings applies without a restart.
type CredentialsFunc func(ctx context.Context) (model.TPOSConfig, error)

// StaticCredentials always returns cfg.
func StaticCredentials(cfg model.TPOSConfig) CredentialsFunc {
	return func(context.Context) (model.TPOSConfig, error) {
		return cfg, nil
	}
}

type TPOSClient struct {
	http        *httpClient
	credentials CredentialsFunc
}

func NewTPOSClient(credentials CredentialsFunc, cfg ClientConfig) *TPOSClient {
	logger.Info("TPOS client initialized", "timeout", cfg.Timeout)
	return &TPOSClient{
		http:        newHTTPClient(platformTPOS, cfg),
		credentials: credentials,
	}
}

type odataList[T any] struct {
	Value []T `json:"value"`
}

// FetchOrders returns the newest top orders attached to a Facebook post.
func (c *TPOSClient) FetchOrders(ctx context.Context, postID string, top int) ([]model.Order, error) {
	if postID == "" {
		return nil, errors.New("post id is required")
	}
	if top <= 0 {
		top = 500
	}

	params := url.Values{}
	params.Set("PostId", postID)
	params.Set("$top", strconv.Itoa(top))
	params.Set("$orderby", "DateCreated desc")

	body, err := c.get(ctx, "fetch_orders", "/odata/SaleOnline_Order/ODataService.GetOrdersByPostId", params)
	if err != nil {
		return nil, err
	}

	var out odataList[model.Order]
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal orders: %w", err)
	}
	return out.Value, nil
}

// LookupPartners resolves phones in slices of PartnerBatchSize. A failing slice is logged
// and contributes nothing; the returned error joins the slice failures for reporting while
// the map still holds every partner that was found. The map is keyed by the phones as
// requested; equivalent spellings of one number are sent once and all receive the partner.
func (c *TPOSClient) LookupPartners(ctx context.Context, phones []string) (map[string]model.Partner, error) {
	result := make(map[string]model.Partner, len(phones))
	wanted := make(map[string][]string, len(phones))
	var unique []string
	for _, p := range phones {
		key := PhoneKey(p)
		if key == "" {
			continue
		}
		if _, ok := wanted[key]; !ok {
			unique = append(unique, p)
		}
		wanted[key] = append(wanted[key], p)
	}

	var errs []error
	for start := 0; start < len(unique); start += PartnerBatchSize {
		end := start + PartnerBatchSize
		if end > len(unique) {
			end = len(unique)
		}
		slice := unique[start:end]

		partners, err := c.lookupSlice(ctx, slice)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Warn("partner lookup slice failed", "phones", len(slice), "error", err)
			errs = append(errs, err)
			continue
		}
		for _, partner := range partners {
			for _, requested := range wanted[PhoneKey(partner.Phone)] {
				if _, seen := result[requested]; !seen {
					result[requested] = partner
				}
			}
		}
	}

	return result, errors.Join(errs...)
}

func (c *TPOSClient) lookupSlice(ctx context.Context, phones []string) ([]model.Partner, error) {
	params := url.Values{}
	params.Set("Type", "Customer")
	params.Set("Phone", strings.Join(phones, ","))

	body, err := c.get(ctx, "lookup_partners", "/odata/Partner/ODataService.GetViewV2", params)
	if err != nil {
		return nil, err
	}

	var out odataList[model.Partner]
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal partners: %w", err)
	}
	return out.Value, nil
}

func (c *TPOSClient) get(ctx context.Context, operation, path string, params url.Values) ([]byte, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if creds.BaseURL == "" || creds.BearerToken == "" {
		return nil, ErrTPOSNotConfigured
	}

	endpoint := strings.TrimRight(creds.BaseURL, "/") + path + "?" + params.Encode()
	headers := map[string]string{
		"Authorization": "Bearer " + creds.BearerToken,
	}
	return c.http.doRequest(ctx, operation, fasthttp.MethodGet, endpoint, headers, nil)
}

// PhoneKey reduces a phone to its digits, with a leading 84 country code folded to 0.
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "84") && len(digits) == 11 {
		digits = "0" + digits[2:]
	}
	return digits
}
