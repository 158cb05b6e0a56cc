package store

// Run holds the outcome of one scrape-and-compile run.
type Run struct {
	ID          int64
	Caselist    string
	Mode        string
	Targets     string
	Topic       string
	Files       int
	Blocks      int
	Arguments   int
	Tournaments int
	UnknownSide int
	AffPath     *string
	NegPath     *string
	PacketPath  *string
	ReportMD    string
	GeneratedAt *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	CachedListings int
	Files          int
	Runs           int
	LastGenerated  string
}
