package custody

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) SettleFundsTransfer(ctx context.Context, id string) error {
	return c.sandbox(ctx, "settle_funds_transfer", "/v2/funds-transfers/"+url.PathEscape(id)+"/sandbox/settle")
}

func (c *Client) ClearContingentHold(ctx context.Context, id string) error {
	return c.sandbox(ctx, "clear_contingent_hold", "/v2/contingent-holds/"+url.PathEscape(id)+"/sandbox/clear")
}

func (c *Client) SettleAssetTransfer(ctx context.Context, id string) error {
	return c.sandbox(ctx, "settle_asset_transfer", "/v2/asset-transfers/"+url.PathEscape(id)+"/sandbox/settle")
}

func (c *Client) OpenAccount(ctx context.Context, id string) error {
	return c.sandbox(ctx, "open_account", "/v2/accounts/"+url.PathEscape(id)+"/sandbox/open")
}

func (c *Client) sandbox(ctx context.Context, operation, path string) error {
	return c.send(ctx, call{operation: operation, method: http.MethodPost, path: path}, nil)
}
