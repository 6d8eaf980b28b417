// Package seed generates plausible customers and accounts for demos and
// load tests. Names, towns and street parts come from the classic branch
// test-data fixtures; all randomness flows from an injected seed so runs
// are reproducible.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/bankcore/internal/bank"
	"github.com/example/bankcore/internal/store"
)

var forenames = []string{
	"Michael", "Will", "Geoff", "Chris", "Dave", "Luke", "Adam", "Giuseppe",
	"James", "Jon", "Andy", "Lou", "Robert", "Sam", "Frederick", "Buford",
	"William", "Howard", "Anthony", "Bruce", "Peter", "Stephen", "Donald",
	"Dennis", "Harold", "Amy", "Belinda", "Charlotte", "Donna", "Felicia",
	"Gretchen", "Henrietta", "Imogen", "Josephine", "Kimberley", "Lucy",
	"Monica", "Natalie", "Ophelia", "Patricia", "Querida", "Rachel",
	"Samantha", "Tanya", "Ulrika", "Virginia", "Wendy", "Xaviera",
	"Yvonne", "Zsa Zsa",
}

var surnames = []string{
	"Jones", "Davidson", "Baker", "Smith", "Taylor", "Evans", "Roberts",
	"Wright", "Walker", "Green", "Price", "Downton", "Gatting", "Robinson",
	"Justice", "Tell", "Stark", "Strange", "Parker", "Blake", "Jackson",
	"Groves", "Palmer", "Lloyd", "Hughes", "Briggs", "Higins", "Goodwin",
	"Valmont", "Brown", "Hopkins", "Bonney", "Jenkins", "Lloyd", "Wilmore",
	"Franklin", "Renton", "Seward", "Morris", "Johnson", "Brennan",
	"Thomson", "Barker", "Corbett", "Weber", "Leigh", "Croft", "Walken",
	"Dubois", "Stephens",
}

var towns = []string{
	"Norwich", "Acle", "Aylsham", "Wymondham", "Attleborough", "Cromer",
	"Cambridge", "Peterborough", "Weobley", "Wembley", "Hereford",
	"Ross-on-Wye", "Hay-on-Wye", "Nottingham", "Northampton", "Nuneaton",
	"Oxford", "Oswestry", "Ormskirk", "Royston", "Chilcomb", "Winchester",
	"Wrexham", "Crewe", "Plymouth", "Portsmouth", "Forfar", "Fife",
	"Aberdeen", "Glasgow", "Birmingham", "Bolton", "Whitby", "Manchester",
	"Chester", "Leicester", "Lowestoft", "Ipswich", "Colchester", "Dover",
	"Brighton", "Salisbury", "Bristol", "Bath", "Gloucester", "Cheltenham",
	"Durham", "Carlisle", "York", "Exeter",
}

var trees = []string{
	"Acacia", "Birch", "Cypress", "Douglas", "Elm", "Fir", "Gorse",
	"Holly", "Ironwood", "Joshua", "Kapok", "Laburnam", "Maple", "Nutmeg",
	"Oak", "Pine", "Quercine", "Rowan", "Sycamore", "Thorn", "Ulmus",
	"Viburnum", "Willow", "Xylophone", "Yew", "Zebratree",
}

var roads = []string{
	"Avenue", "Boulevard", "Close", "Crescent", "Drive", "Escalade",
	"Frontage", "Lane", "Mews", "Rise", "Court", "Opening", "Loke",
	"Square", "Houses", "Gate", "Street", "Grove", "March",
}

// titlesWeighted repeats common titles so the draw roughly matches a real
// customer population.
var titlesWeighted = []string{
	"Mr", "Mr", "Mr", "Mr", "Mr",
	"Mrs", "Mrs", "Mrs", "Mrs", "Mrs",
	"Miss", "Miss", "Miss", "Miss",
	"Ms", "Ms", "Ms", "Ms", "Ms", "Ms",
	"Dr", "Dr", "Dr", "Dr", "Dr",
	"Drs",
	"Professor", "Professor", "Professor",
	"Lord",
	"Sir", "Sir",
	"Lady", "Lady",
}

var accountTypes = []string{
	bank.TypeCurrent, bank.TypeSaving, bank.TypeLoan, bank.TypeMortgage, bank.TypeISA,
}

var typeRates = map[string]int{
	bank.TypeISA:      250,
	bank.TypeSaving:   150,
	bank.TypeCurrent:  0,
	bank.TypeLoan:     750,
	bank.TypeMortgage: 450,
}

// Stats summarizes one generation run.
type Stats struct {
	Customers int `json:"customers"`
	Accounts  int `json:"accounts"`
}

// Generator writes random customers and accounts through a store unit of
// work. It bypasses the credit-scoring fan-out and draws scores directly,
// like a bulk branch load would.
type Generator struct {
	sortcode string
	rng      *rand.Rand
	now      func() time.Time
}

// NewGenerator builds a generator for a sortcode with a fixed seed.
func NewGenerator(sortcode string, seed int64) *Generator {
	return &Generator{
		sortcode: sortcode,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

// Generate writes numCustomers customers, each with accountsPerCustomer
// accounts carrying random opening balances. Everything goes through the
// supplied unit of work; the caller commits or rolls back.
func (g *Generator) Generate(ctx context.Context, tx store.Tx, numCustomers, accountsPerCustomer int) (*Stats, error) {
	stats := &Stats{}
	today := g.now().Format("2006-01-02")

	for i := 0; i < numCustomers; i++ {
		number, err := tx.NextCustomerNumber(ctx, g.sortcode)
		if err != nil {
			return nil, err
		}
		cust := &store.Customer{
			Sortcode:        g.sortcode,
			Number:          number,
			Name:            g.randomName(),
			Address:         g.randomAddress(),
			DateOfBirth:     g.randomDOB(),
			CreditScore:     1 + g.rng.Intn(999),
			ScoreReviewDate: today,
		}
		if err := tx.InsertCustomer(ctx, cust); err != nil {
			return nil, err
		}
		stats.Customers++

		for j := 0; j < accountsPerCustomer; j++ {
			accType := accountTypes[g.rng.Intn(len(accountTypes))]
			accNumber, err := tx.NextAccountNumber(ctx, g.sortcode)
			if err != nil {
				return nil, err
			}
			balance := int64(g.rng.Intn(1_000_001))
			acc := &store.Account{
				Sortcode:         g.sortcode,
				Number:           accNumber,
				CustomerNumber:   number,
				Type:             accType,
				InterestRate:     typeRates[accType],
				Opened:           today,
				AvailableBalance: balance,
				ActualBalance:    balance,
			}
			if err := tx.InsertAccount(ctx, acc); err != nil {
				return nil, err
			}
			stats.Accounts++
		}
	}
	return stats, nil
}

func (g *Generator) randomName() string {
	title := titlesWeighted[g.rng.Intn(len(titlesWeighted))]
	forename := forenames[g.rng.Intn(len(forenames))]
	surname := surnames[g.rng.Intn(len(surnames))]
	return fmt.Sprintf("%s %s %s", title, forename, surname)
}

func (g *Generator) randomAddress() string {
	return fmt.Sprintf("%d %s %s, %s",
		1+g.rng.Intn(99),
		trees[g.rng.Intn(len(trees))],
		roads[g.rng.Intn(len(roads))],
		towns[g.rng.Intn(len(towns))])
}

func (g *Generator) randomDOB() string {
	start := time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2000, 12, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	return start.AddDate(0, 0, g.rng.Intn(days+1)).Format("2006-01-02")
}
