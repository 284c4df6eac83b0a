package ktportal

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// The meal plan lives behind a Nexacro platform controller: every
// query is an XML envelope naming a stored procedure and carrying one
// input row, and every response embeds its own status code/message
// pair independent of the HTTP transport status.
const (
	nexacroXmlns  = "http://www.nexacroplatform.com/platform/dataset"
	queryMethod   = "getList_sp"
	mealPlanSqlid = "NK_COT_MEAL_PLAN.NP_SELECT_11"
)

// Column ids of the meal plan query. RESTURANT is the portal's own
// spelling, not ours.
const (
	colEatDate    = "EAT_DATE"
	colEatType    = "EAT_TYPE"
	colRestaurant = "RESTURANT"
	colCampus     = "CAMPUS"
	colPrice      = "PRICE"
	colKcal       = "KCAL"
	colDish       = "DISH"
)

type nexacroParameter struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type nexacroColumn struct {
	ID   string `xml:"id,attr"`
	Type string `xml:"type,attr"`
	Size string `xml:"size,attr"`
}

type nexacroCol struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type nexacroRow struct {
	Cols []nexacroCol `xml:"Col"`
}

type nexacroDataset struct {
	ID      string          `xml:"id,attr"`
	Columns []nexacroColumn `xml:"ColumnInfo>Column"`
	Rows    []nexacroRow    `xml:"Rows>Row"`
}

type nexacroDocument struct {
	XMLName    xml.Name           `xml:"Root"`
	Xmlns      string             `xml:"xmlns,attr,omitempty"`
	Parameters []nexacroParameter `xml:"Parameters>Parameter"`
	Datasets   []nexacroDataset   `xml:"Dataset"`
}

func (d *nexacroDocument) parameter(id string) (string, bool) {
	for _, p := range d.Parameters {
		if p.ID == id {
			return p.Value, true
		}
	}
	return "", false
}

// firstRow returns the first output row, or nil when the result set
// is empty ("no meal served for this slot").
func (d *nexacroDocument) firstRow() *nexacroRow {
	for _, ds := range d.Datasets {
		if len(ds.Rows) > 0 {
			return &ds.Rows[0]
		}
	}
	return nil
}

func (r *nexacroRow) col(id string) (string, bool) {
	for _, c := range r.Cols {
		if c.ID == id {
			return c.Value, true
		}
	}
	return "", false
}

// buildMealQuery renders the query envelope for one dining slot. The
// session's cookie snapshot rides along as parameters; the portal
// validates them against the server-side session.
func buildMealQuery(session *Session, target CrawlTarget) ([]byte, error) {
	doc := nexacroDocument{
		Xmlns: nexacroXmlns,
	}
	for _, cookie := range session.Cookies {
		doc.Parameters = append(doc.Parameters, nexacroParameter{
			ID:    cookie.Name,
			Value: cookie.Value,
		})
	}
	doc.Parameters = append(doc.Parameters,
		nexacroParameter{ID: "method", Value: queryMethod},
		nexacroParameter{ID: "sqlid", Value: mealPlanSqlid},
	)
	doc.Datasets = []nexacroDataset{{
		ID: "input1",
		Columns: []nexacroColumn{
			{ID: colEatDate, Type: "string", Size: "4000"},
			{ID: colEatType, Type: "string", Size: "4000"},
			{ID: colRestaurant, Type: "string", Size: "4000"},
			{ID: colCampus, Type: "string", Size: "4000"},
		},
		Rows: []nexacroRow{{
			Cols: []nexacroCol{
				{ID: colEatDate, Value: target.Date},
				{ID: colEatType, Value: string(target.DiningTime)},
				{ID: colRestaurant, Value: target.Restaurant},
				{ID: colCampus, Value: target.Campus},
			},
		}},
	}}

	body, err := xml.Marshal(&doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// markers the portal embeds in ErrorMsg when the server-side session
// is gone; distinguishes expiry from ordinary protocol failures
var sessionExpiredMarkers = []string{"세션", "로그인", "session"}

func isSessionExpiredMessage(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, marker := range sessionExpiredMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// decodeMealResponse converts a raw controller response into a
// MenuRecord. A nil record with a nil error is a legitimate empty
// slot, not a failure.
func decodeMealResponse(body []byte, target CrawlTarget) (*MenuRecord, error) {
	var doc nexacroDocument
	err := xml.Unmarshal(body, &doc)
	if err != nil {
		return nil, &ParseError{Detail: "malformed response document", Err: err}
	}

	code, ok := doc.parameter("ErrorCode")
	if !ok {
		return nil, &ParseError{Detail: "response missing ErrorCode parameter"}
	}
	if code != "0" {
		msg, _ := doc.parameter("ErrorMsg")
		if isSessionExpiredMessage(msg) {
			return nil, &AuthError{Stage: StageSession, Reason: msg}
		}
		return nil, &RequestError{
			Kind:   KindProtocol,
			Detail: fmt.Sprintf("ErrorCode %s: %s", code, msg),
		}
	}

	row := doc.firstRow()
	if row == nil {
		return nil, nil
	}

	date, ok := row.col(colEatDate)
	if !ok || cleanText(date) == "" {
		return nil, &ParseError{Detail: "row missing " + colEatDate}
	}
	eatType, ok := row.col(colEatType)
	if !ok || cleanText(eatType) == "" {
		return nil, &ParseError{Detail: "row missing " + colEatType}
	}
	place, ok := row.col(colRestaurant)
	if !ok || cleanText(place) == "" {
		return nil, &ParseError{Detail: "row missing " + colRestaurant}
	}

	diningTime := DiningTime(cleanText(eatType))
	if !diningTime.Valid() {
		return nil, &ParseError{Detail: fmt.Sprintf("unexpected %s value %q", colEatType, eatType)}
	}

	dish, _ := row.col(colDish)
	items, annotationPrice, annotationKcal := splitDishBlock(dish)

	priceCol, _ := row.col(colPrice)
	price := safeInt(cleanText(priceCol))
	if price == 0 {
		price = annotationPrice
	}
	kcalCol, _ := row.col(colKcal)
	kcal := safeInt(cleanText(kcalCol))
	if kcal == 0 {
		kcal = annotationKcal
	}

	// an empty item list is only legal for a fully absent slot
	if len(items) == 0 && (price != 0 || kcal != 0) {
		return nil, &ParseError{
			Detail: fmt.Sprintf("row for %s has price/kcal but no menu items", target),
		}
	}

	cleanDate := cleanText(date)
	cleanPlace := cleanText(place)
	return &MenuRecord{
		ID:         MenuID(cleanDate, diningTime, cleanPlace),
		Date:       cleanDate,
		DiningTime: diningTime,
		Place:      cleanPlace,
		Price:      price,
		Kcal:       kcal,
		Items:      items,
	}, nil
}
