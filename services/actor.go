package services

import (
	"fmt"

	"protocol-review-api/models"
)

// Actor identifies who is performing a workflow operation.
type Actor struct {
	ID   int              `json:"id"`
	Type models.ActorType `json:"type"`
}

// OfficeActor returns a review-office actor.
func OfficeActor(id int) Actor {
	return Actor{ID: id, Type: models.ActorOffice}
}

// InvestigatorActor returns an investigator actor.
func InvestigatorActor(id int) Actor {
	return Actor{ID: id, Type: models.ActorInvestigator}
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%d", a.Type, a.ID)
}

// canAct reports whether a may perform an action reserved for want on app.
func (a Actor) canAct(want models.ActorType, app models.ProtocolApplication) bool {
	if a.ID <= 0 || a.Type != want {
		return false
	}
	if want == models.ActorInvestigator {
		return a.ID == app.InvestigatorID
	}
	return true
}
