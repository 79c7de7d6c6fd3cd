package tour

// Place is a point of interest from the category index.
type Place struct {
	Title   string `json:"title"`
	Address string `json:"address"`
}

// Form accumulates what the user told us during one conversation.
type Form struct {
	Interests  string  `json:"interests"`
	Hours      int     `json:"hours"`
	Location   string  `json:"location"`
	Candidates []Place `json:"candidates,omitempty"`
}

// Category is one entry of the fixed classification set.
type Category struct {
	Key  string
	Name string
}

// Categories is the fixed set interests are classified into. Keys match the
// category index document.
var Categories = []Category{
	{Key: "1", Name: "Музеи и выставки"},
	{Key: "2", Name: "История и архитектура"},
	{Key: "3", Name: "Парки, набережные и виды"},
	{Key: "4", Name: "Стрит-арт и современное искусство"},
	{Key: "5", Name: "Кофейни и кафе"},
	{Key: "6", Name: "Рестораны и местная кухня"},
	{Key: "7", Name: "Театры, концерты и развлечения"},
	{Key: "8", Name: "Храмы и монастыри"},
	{Key: "9", Name: "Шопинг и сувениры"},
}

// IsCategory reports whether key is one of Categories.
func IsCategory(key string) bool {
	for _, c := range Categories {
		if c.Key == key {
			return true
		}
	}
	return false
}
