package driven

import "github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"

// UserEvents publishes domain events emitted by the lifecycle service.
// Publishing is fire-and-forget: implementations must never block the caller
// and may drop events under pressure (the cache tolerates bounded staleness).
type UserEvents interface {
	Publish(ev domain.UserEvent)
}
