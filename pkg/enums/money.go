package enums

// PaymentStatus tracks the lifecycle of a reservation payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

var paymentStatuses = newSet("payment status",
	PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded)

func (p PaymentStatus) String() string { return string(p) }
func (p PaymentStatus) IsValid() bool  { return paymentStatuses.has(p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) { return paymentStatuses.parse(value) }
func PaymentStatuses() []PaymentStatus                      { return paymentStatuses.all() }

// RefundStatus tracks a refund request against a completed payment.
type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "REQUESTED"
	RefundStatusProcessed RefundStatus = "PROCESSED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

var refundStatuses = newSet("refund status", RefundStatusRequested, RefundStatusProcessed, RefundStatusFailed)

func (r RefundStatus) String() string   { return string(r) }
func (r RefundStatus) IsValid() bool    { return refundStatuses.has(r) }
func (r RefundStatus) IsTerminal() bool { return r != RefundStatusRequested && r.IsValid() }

func ParseRefundStatus(value string) (RefundStatus, error) { return refundStatuses.parse(value) }
func RefundStatuses() []RefundStatus                      { return refundStatuses.all() }

// PaymentProvider names a registered payment backend. Unlike the other
// enums these are lower case, matching the provider path segment.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderPayPal PaymentProvider = "paypal"
	PaymentProviderSquare PaymentProvider = "square"
	PaymentProviderOnsite PaymentProvider = "onsite"
	PaymentProviderTest   PaymentProvider = "test"
)

var paymentProviders = newSet("payment provider",
	PaymentProviderStripe, PaymentProviderPayPal, PaymentProviderSquare, PaymentProviderOnsite, PaymentProviderTest)

func (p PaymentProvider) String() string { return string(p) }
func (p PaymentProvider) IsValid() bool  { return paymentProviders.has(p) }

func ParsePaymentProvider(value string) (PaymentProvider, error) { return paymentProviders.parse(value) }
func PaymentProviders() []PaymentProvider                       { return paymentProviders.all() }

// Currency is an ISO 4217 code accepted for payments.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyMXN Currency = "MXN"
)

var currencies = newSet("currency", CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyCAD, CurrencyMXN)

func (c Currency) String() string { return string(c) }
func (c Currency) IsValid() bool  { return currencies.has(c) }

func ParseCurrency(value string) (Currency, error) { return currencies.parse(value) }
func Currencies() []Currency                      { return currencies.all() }
