package constants

// Обменник, в который публикуются полученные страницы
const (
	ExchangeIdealista     = "idealista_exchange"
	ExchangeIdealistaType = "direct"
)

// Ключи маршрутизации
const (
	RoutingKeyPageFetched = "idealista.page.fetched"
)

// Метаданные события, по ним потребитель выбирает схему
const (
	EventTypePageFetched    = "PropertyPageFetchedEvent"
	EventVersionPageFetched = "1.0.0"
)
