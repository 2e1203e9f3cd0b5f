package internal

type Prize struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Player struct {
	Id          int     `json:"id"`
	Name        string  `json:"name"`
	Total       int     `json:"total"`
	Prizes      []Prize `json:"prizes"`
	RoundBank   int     `json:"round_bank"`
	RoundPrizes []Prize `json:"round_prizes"`

	// Ownership. ClaimedConn is the connection driving this slot, ClaimedUserID
	// the account bound to it (0 when anonymous); the latter survives reconnects.
	ClaimedConn   string `json:"-"`
	ClaimedUserID int64  `json:"-"`
}

type PlayerSnapshot struct {
	Id                   int     `json:"id"`
	Name                 string  `json:"name"`
	Total                int     `json:"total"`
	Prizes               []Prize `json:"prizes"`
	PrizeValueTotal      int     `json:"prize_value_total"`
	RoundBank            int     `json:"round_bank"`
	RoundPrizes          []Prize `json:"round_prizes"`
	RoundPrizeValueTotal int     `json:"round_prize_value_total"`
	Claimed              bool    `json:"claimed"`
}

func NewPlayer(id int, name string) *Player {
	return &Player{
		Id:          id,
		Name:        Truncate(name, MaxPlayerNameLen),
		Prizes:      []Prize{},
		RoundPrizes: []Prize{},
	}
}

func PrizeValueSum(prizes []Prize) int {
	sum := 0
	for _, pr := range prizes {
		sum += pr.Value
	}
	return sum
}

// TVTotal is the banked cash plus the value of every prize won.
func (p *Player) TVTotal() int {
	return p.Total + PrizeValueSum(p.Prizes)
}

func (p *Player) HasRoundPrize(name string) bool {
	for _, pr := range p.RoundPrizes {
		if pr.Name == name {
			return true
		}
	}
	return false
}

// ResetRoundState forfeits everything pending for the current puzzle.
func (p *Player) ResetRoundState() {
	p.RoundBank = 0
	p.RoundPrizes = []Prize{}
}

// BankRound moves the round bank and round prizes into the permanent totals.
func (p *Player) BankRound() {
	p.Total += p.RoundBank
	p.Prizes = append(p.Prizes, p.RoundPrizes...)
	p.ResetRoundState()
}

func (p *Player) ResetScores() {
	p.Total = 0
	p.Prizes = []Prize{}
	p.ResetRoundState()
}

func CreatePlayerSnapshot(p *Player) PlayerSnapshot {
	return PlayerSnapshot{
		Id:                   p.Id,
		Name:                 p.Name,
		Total:                p.Total,
		Prizes:               append([]Prize{}, p.Prizes...),
		PrizeValueTotal:      PrizeValueSum(p.Prizes),
		RoundBank:            p.RoundBank,
		RoundPrizes:          append([]Prize{}, p.RoundPrizes...),
		RoundPrizeValueTotal: PrizeValueSum(p.RoundPrizes),
		Claimed:              p.ClaimedConn != "",
	}
}
