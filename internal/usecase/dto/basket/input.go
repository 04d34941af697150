package basketdto

// AddTicketsInput names tickets explicitly or asks for Quantity random ones.
type AddTicketsInput struct {
	UserID    string
	LotteryID int64
	TicketIDs []int64
	Quantity  int
}

type RemoveTicketInput struct {
	UserID    string
	LotteryID int64
	TicketID  int64
}
