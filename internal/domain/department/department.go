package department

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}
