package server

import "github.com/jonwraymond/gridgate/auth"

// Protected operations and the roles each one statically permits.
var (
	OpGridBlackouts       = auth.NewOperation("grid.blackouts", auth.RoleAdmin)
	OpHouseholdsByUser    = auth.NewOperation("households.byUser", auth.RoleAdmin, auth.RoleUser)
	OpHouseholdsMine      = auth.NewOperation("households.mine", auth.RoleUser)
	OpHouseholdCreate     = auth.NewOperation("household.create", auth.RoleAdmin, auth.RoleUser)
	OpHouseholdGet        = auth.NewOperation("household.get", auth.RoleAdmin, auth.RoleUser)
	OpHouseholdUpdate     = auth.NewOperation("household.update", auth.RoleAdmin, auth.RoleUser)
	OpHouseholdDelete     = auth.NewOperation("household.delete", auth.RoleAdmin, auth.RoleUser)
	OpMarketLimitSet      = auth.NewOperation("market.limit.set", auth.RoleAdmin)
	OpMarketLimitDelete   = auth.NewOperation("market.limit.delete", auth.RoleAdmin)
	OpPowerplantStatus    = auth.NewOperation("powerplant.status", auth.RoleAdmin)
	OpPowerplantStatusSet = auth.NewOperation("powerplant.status.set", auth.RoleAdmin)
	OpWhoAmI              = auth.NewOperation("whoami", auth.RoleAdmin, auth.RoleUser)
)

// Operations lists every protected operation.
var Operations = []auth.Operation{
	OpGridBlackouts,
	OpHouseholdsByUser,
	OpHouseholdsMine,
	OpHouseholdCreate,
	OpHouseholdGet,
	OpHouseholdUpdate,
	OpHouseholdDelete,
	OpMarketLimitSet,
	OpMarketLimitDelete,
	OpPowerplantStatus,
	OpPowerplantStatusSet,
	OpWhoAmI,
}
