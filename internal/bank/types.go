package bank

// Account types form a fixed closed set; anything else is rejected, never
// coerced.
const (
	TypeCurrent  = "CURRENT"
	TypeSaving   = "SAVING"
	TypeLoan     = "LOAN"
	TypeMortgage = "MORTGAGE"
	TypeISA      = "ISA"
)

// Audit entry type codes, persisted verbatim for downstream report
// consumers.
const (
	TransCustomerCreated = "OCC"
	TransCustomerDeleted = "ODC"
	TransAccountCreated  = "OCA"
	TransAccountDeleted  = "ODA"
	TransDebit           = "DEB"
	TransCredit          = "CRE"
	TransTransfer        = "TFR"
)

const (
	// MaxCustomerNumber and above select the highest-numbered customer.
	MaxCustomerNumber int64 = 9_999_999_999
	// MaxAccountNumber and above select the highest-numbered account.
	MaxAccountNumber int64 = 99_999_999
	// MaxAccountsPerQuery caps the accounts-by-customer page.
	MaxAccountsPerQuery = 20
)

// validTitles is the closed set of honorifics accepted as the first token
// of a customer name. The empty string covers names with no title at all.
var validTitles = map[string]bool{
	"Mr": true, "Mrs": true, "Miss": true, "Ms": true, "Dr": true,
	"Drs": true, "Professor": true, "Lord": true, "Sir": true,
	"Lady": true, "": true,
}

var validAccountTypes = map[string]bool{
	TypeCurrent: true, TypeSaving: true, TypeLoan: true,
	TypeMortgage: true, TypeISA: true,
}

type typeDefaults struct {
	interestRate   int   // hundredths of a percent
	overdraftLimit int64 // minor currency units
}

// defaultRates supplies per-type defaults when account creation omits the
// rate or the overdraft limit.
var defaultRates = map[string]typeDefaults{
	TypeISA:      {interestRate: 250},
	TypeSaving:   {interestRate: 150},
	TypeCurrent:  {interestRate: 0},
	TypeLoan:     {interestRate: 750},
	TypeMortgage: {interestRate: 450},
}
