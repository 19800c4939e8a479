package checkout

type Repository interface {
	Save(*Checkout) error
	FindByID(id string) (*Checkout, error)
	// TransitionStatus moves the checkout to `to` only if its current status
	// is one of `from`. It reports whether the row changed.
	TransitionStatus(id string, to Status, from ...Status) (bool, error)
	FindPendingByCustodialAccount(accountID string) ([]*Checkout, error)
}

type RequestRepository interface {
	Save(*CheckoutRequest) error
	FindByID(id string) (*CheckoutRequest, error)
	UpdateStatus(id string, status Status, transactionHash string) error
}

type ChargeRepository interface {
	// SaveIfNotExist keeps the first charge recorded for a checkout.
	SaveIfNotExist(*Charge) (bool, error)
	FindByCheckout(checkoutID string) (*Charge, error)
}

type FundsTransferRepository interface {
	Save(*FundsTransfer) error
	Update(*FundsTransfer) error
	FindByID(id string) (*FundsTransfer, error)
	FindByCheckout(checkoutID string) (*FundsTransfer, error)
}

type AssetQuoteRepository interface {
	Save(*AssetQuote) error
	Update(*AssetQuote) error
	FindByID(id string) (*AssetQuote, error)
	FindByCheckout(checkoutID string) (*AssetQuote, error)
}

type AssetTransferRepository interface {
	Save(*AssetTransfer) error
	Update(*AssetTransfer) error
	FindByID(id string) (*AssetTransfer, error)
	FindByCheckout(checkoutID string) (*AssetTransfer, error)
}

type CustodialAccountRepository interface {
	Save(*CustodialAccount) error
	FindByID(id string) (*CustodialAccount, error)
	FindByUserID(userID string) (*CustodialAccount, error)
	FindByContactID(contactID string) (*CustodialAccount, error)
	UpdateVerification(id string, status string, v Verification) error
}
