package bookings

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// TimestampLayout matches the DD-MM-YYYY HH:MM text the warehouse converts with STRPTIME.
const TimestampLayout = "02-01-2006 15:04"

type Airline struct {
	ID   int64  `parquet:"airlie_id"`
	Name string `parquet:"airline_name"`
}

// Booking mirrors one row of the bookings source file, including its historical column spellings.
type Booking struct {
	AirlineID           int64   `parquet:"airlie_id"`
	Flight              string  `parquet:"flght"`
	DepartureAt         string  `parquet:"departure_dt"`
	ArrivalAt           string  `parquet:"arrival_dt"`
	DepartureTime       string  `parquet:"dep_time"`
	ArrivalTime         string  `parquet:"arrivl_time"`
	BookingCode         string  `parquet:"booking_cd"`
	PassengerName       string  `parquet:"passngr_nm"`
	SeatNumber          string  `parquet:"seat_no"`
	Class               string  `parquet:"class"`
	Fare                float64 `parquet:"fare"`
	Extras              string  `parquet:"extras"`
	LoyaltyPoints       int64   `parquet:"loyalty_pts"`
	Status              string  `parquet:"status"`
	Gate                string  `parquet:"gate"`
	Terminal            string  `parquet:"terminal"`
	BaggageClaim        string  `parquet:"baggage_claim"`
	DurationHours       float64 `parquet:"duration_hrs"`
	Layovers            int64   `parquet:"layovers"`
	LayoverLocations    string  `parquet:"layover_locations"`
	AircraftType        string  `parquet:"aircraft_type"`
	Pilot               string  `parquet:"pilot"`
	CabinCrew           string  `parquet:"cabin_crew"`
	InflightEntertain   string  `parquet:"inflight_ent"`
	MealOption          string  `parquet:"meal_option"`
	WiFi                bool    `parquet:"wifi"`
	WindowSeat          bool    `parquet:"window_seat"`
	AisleSeat           bool    `parquet:"aisle_seat"`
	EmergencyExitRow    bool    `parquet:"emergency_exit_row"`
	NumberOfStops       int64   `parquet:"number_of_stops"`
	RewardProgramMember bool    `parquet:"reward_program_member"`
}

var (
	airlineNames = []string{
		"American Airlines", "Delta Air Lines", "United Airlines", "Southwest Airlines",
		"Lufthansa", "Emirates", "British Airways", "Air France", "Qatar Airways", "Singapore Airlines",
	}
	airlineCodes  = []string{"AA", "DL", "UA", "WN", "LH", "EK", "BA", "AF", "QR", "SQ"}
	classes       = []string{"Economy", "Premium Economy", "Business", "First"}
	statuses      = []string{"Confirmed", "Cancelled", "Checked-In", "Boarded", "Completed"}
	terminals     = []string{"T1", "T2", "T3", "T4", "T5"}
	extras        = []string{"None", "Extra Legroom", "Priority Boarding", "Lounge Access", "Extra Baggage"}
	airports      = []string{"JFK", "LHR", "FRA", "DXB", "CDG", "SIN", "ORD", "ATL", "DOH", "AMS"}
	aircraftTypes = []string{"Airbus A320", "Airbus A350", "Boeing 737", "Boeing 777", "Boeing 787", "Embraer E190"}
	entertainment = []string{"Movies", "Music", "Live TV", "None"}
	meals         = []string{"Vegetarian", "Vegan", "Chicken", "Fish", "Kosher", "None"}
	firstNames    = []string{"Ava", "Liam", "Noah", "Mia", "Zoe", "Omar", "Ines", "Kenji", "Lena", "Ravi", "Sara", "Tom"}
	lastNames     = []string{"Smith", "Garcia", "Muller", "Khan", "Rossi", "Tanaka", "Dubois", "Silva", "Novak", "Okafor"}
)

type Generator struct {
	rnd      *rand.Rand
	airlines []Airline
	start    time.Time
	span     time.Duration
	sequence int64
}

// NewGenerator returns a deterministic generator. Departures fall within one year from start.
func NewGenerator(seed int64, airlineCount int, start time.Time) *Generator {
	if airlineCount <= 0 || airlineCount > len(airlineNames) {
		airlineCount = len(airlineNames)
	}
	airlines := make([]Airline, airlineCount)
	for i := range airlines {
		airlines[i] = Airline{ID: int64(i + 1), Name: airlineNames[i]}
	}
	return &Generator{
		rnd:      rand.New(rand.NewSource(seed)),
		airlines: airlines,
		start:    start.UTC().Truncate(time.Minute),
		span:     365 * 24 * time.Hour,
	}
}

func (g *Generator) Airlines() []Airline {
	return append([]Airline(nil), g.airlines...)
}

func (g *Generator) Bookings(n int) []Booking {
	out := make([]Booking, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.NextBooking())
	}
	return out
}

func (g *Generator) NextBooking() Booking {
	g.sequence++
	airlineIndex := g.rnd.Intn(len(g.airlines))
	airline := g.airlines[airlineIndex]

	departure := g.start.Add(time.Duration(g.rnd.Int63n(int64(g.span/time.Minute))) * time.Minute)
	durationHours := round1(1 + g.rnd.Float64()*13)
	arrival := departure.Add(time.Duration(durationHours * float64(time.Hour))).Truncate(time.Minute)

	class := g.pickClass()
	layovers := int64(g.rnd.Intn(3))
	seatLetter := "ABCDEF"[g.rnd.Intn(6)]

	return Booking{
		AirlineID:           airline.ID,
		Flight:              fmt.Sprintf("%s%d", airlineCodes[airlineIndex], 100+g.rnd.Intn(900)),
		DepartureAt:         departure.Format(TimestampLayout),
		ArrivalAt:           arrival.Format(TimestampLayout),
		DepartureTime:       departure.Format("15:04"),
		ArrivalTime:         arrival.Format("15:04"),
		BookingCode:         fmt.Sprintf("BK%08d", g.sequence),
		PassengerName:       pickOne(g.rnd, firstNames) + " " + pickOne(g.rnd, lastNames),
		SeatNumber:          fmt.Sprintf("%d%c", 1+g.rnd.Intn(45), seatLetter),
		Class:               class,
		Fare:                g.pickFare(class),
		Extras:              pickOne(g.rnd, extras),
		LoyaltyPoints:       int64(g.rnd.Intn(50000)),
		Status:              pickOne(g.rnd, statuses),
		Gate:                fmt.Sprintf("%c%d", 'A'+rune(g.rnd.Intn(6)), 1+g.rnd.Intn(40)),
		Terminal:            pickOne(g.rnd, terminals),
		BaggageClaim:        fmt.Sprintf("BC%d", 1+g.rnd.Intn(12)),
		DurationHours:       durationHours,
		Layovers:            layovers,
		LayoverLocations:    g.pickLayovers(int(layovers)),
		AircraftType:        pickOne(g.rnd, aircraftTypes),
		Pilot:               "Capt. " + pickOne(g.rnd, lastNames),
		CabinCrew:           fmt.Sprintf("%d crew", 3+g.rnd.Intn(10)),
		InflightEntertain:   pickOne(g.rnd, entertainment),
		MealOption:          pickOne(g.rnd, meals),
		WiFi:                g.rnd.Intn(2) == 0,
		WindowSeat:          seatLetter == 'A' || seatLetter == 'F',
		AisleSeat:           seatLetter == 'C' || seatLetter == 'D',
		EmergencyExitRow:    g.rnd.Intn(15) == 0,
		NumberOfStops:       layovers,
		RewardProgramMember: g.rnd.Intn(3) == 0,
	}
}

func (g *Generator) pickClass() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 60:
		return classes[0]
	case p < 78:
		return classes[1]
	case p < 95:
		return classes[2]
	default:
		return classes[3]
	}
}

func (g *Generator) pickFare(class string) float64 {
	switch class {
	case "First":
		return round2(2500 + g.rnd.Float64()*6000)
	case "Business":
		return round2(900 + g.rnd.Float64()*3000)
	case "Premium Economy":
		return round2(350 + g.rnd.Float64()*900)
	default:
		return round2(60 + g.rnd.Float64()*600)
	}
}

func (g *Generator) pickLayovers(n int) string {
	if n == 0 {
		return ""
	}
	stops := make([]string, 0, n)
	for i := 0; i < n; i++ {
		stops = append(stops, pickOne(g.rnd, airports))
	}
	return strings.Join(stops, ";")
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
