// Package mockodata is a local stand-in for the SAP Gateway shop-floor
// service. It serves the same entity sets, CSRF handshake and LoginSet the
// portal uses, from in-memory fixtures.
package mockodata

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	PlannedOrderSet    = "PlannedOrderSet"
	ProductionOrderSet = "ProductionOrderSet"
)

// dateLayout is how fixture dates are written (Edm.DateTime, no offset).
const dateLayout = "2006-01-02T15:04:05"

var dateFields = map[string]bool{
	"Basicstartdate":  true,
	"Basicfinishdate": true,
}

type FixtureUser struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type Fixtures struct {
	Users            []FixtureUser       `json:"users"`
	PlannedOrders    []map[string]string `json:"PlannedOrderSet"`
	ProductionOrders []map[string]string `json:"ProductionOrderSet"`
}

func LoadFixtures(path string) (Fixtures, error) {
	var fx Fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	return fx, nil
}

// SampleFixtures builds a small data set around now so a local portal has
// something in every dashboard tile.
func SampleFixtures(now time.Time) Fixtures {
	day := func(months, days int) string {
		d := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return d.AddDate(0, months, days).Format(dateLayout)
	}

	fx := Fixtures{
		Users: []FixtureUser{{ID: "SHOPFLOOR", Password: "welcome1"}},
	}

	plants := []string{"1010", "1020", "2000"}
	for i := 0; i < 12; i++ {
		fx.PlannedOrders = append(fx.PlannedOrders, map[string]string{
			"Plannedordernumber": fmt.Sprintf("%010d", 10000+i),
			"Materialnumber":     "MAT-" + strconv.Itoa(100+i*10),
			"Planningplant":      plants[i%len(plants)],
			"Basicstartdate":     day(-i, i%27),
			"Basicfinishdate":    day(-i, i%27+5),
			"Totalquantity":      strconv.Itoa(5*(i+1)) + ".000",
			"Baseunit":           "EA",
		})
	}

	types := []string{"PM01", "PM02", "PP01", "CU01"}
	users := []string{"JSMITH", "MLEE", "AKHAN"}
	descriptions := []string{"Pump housing", "Gear shaft", "Valve body", "Motor mount", "Impeller"}
	for i := 0; i < 10; i++ {
		fx.ProductionOrders = append(fx.ProductionOrders, map[string]string{
			"Ordernumber":     strconv.Itoa(1000001 + i),
			"Ordertype":       types[i%len(types)],
			"Description":     descriptions[i%len(descriptions)],
			"Plant":           plants[i%len(plants)],
			"Enteredby":       users[i%len(users)],
			"Materialnumber":  "MAT-" + strconv.Itoa(500+i),
			"Basicstartdate":  day(-2*i, i),
			"Basicfinishdate": day(-2*i, i+3),
			"Totalquantity":   strconv.Itoa(i+1) + ".000",
			"Unit":            "PC",
		})
	}
	return fx
}
