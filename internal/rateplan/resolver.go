package rateplan

// Resolve returns the first plan matching the rate code and room type.
// A zero identifier or an unmatched pair is a soft miss: callers skip pricing
// for that row rather than failing.
func Resolve(plans []RatePlan, rateCodeID, roomTypeID ID) (*RatePlan, bool) {
	if rateCodeID.IsZero() || roomTypeID.IsZero() {
		return nil, false
	}
	for i := range plans {
		if plans[i].RateCodeID == rateCodeID && plans[i].RoomTypeID == roomTypeID {
			return &plans[i], true
		}
	}
	return nil, false
}
