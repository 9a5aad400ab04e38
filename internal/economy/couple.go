package economy

// LinkCouple sets the symmetric partner reference on both users. Linking is
// exclusive: it fails if either user already has a different partner.
// Re-linking the same pair is a no-op.
func LinkCouple(s Snapshot, userID, partnerID int64) (Snapshot, []Change, error) {
	if userID == partnerID {
		return s, nil, validationf("cannot link a user to themselves")
	}
	user := s.userByID(userID)
	if user == nil {
		return s, nil, validationf("unknown user %d", userID)
	}
	partner := s.userByID(partnerID)
	if partner == nil {
		return s, nil, validationf("unknown user %d", partnerID)
	}

	// Idempotent for the already-linked pair.
	if user.PartnerID != nil && *user.PartnerID == partnerID &&
		partner.PartnerID != nil && *partner.PartnerID == userID {
		return s, nil, nil
	}

	if user.PartnerID != nil && *user.PartnerID != partnerID {
		return s, nil, invariantf("user %d is already linked to a different partner", userID)
	}
	if partner.PartnerID != nil && *partner.PartnerID != userID {
		return s, nil, invariantf("user %d is already linked to a different partner", partnerID)
	}

	next := s.clone()
	u := next.userByID(userID)
	p := next.userByID(partnerID)
	uid, pid := userID, partnerID
	u.PartnerID = &pid
	p.PartnerID = &uid

	return next, []Change{
		{Op: OpUpdate, Entity: EntityUser, ID: userID, User: u},
		{Op: OpUpdate, Entity: EntityUser, ID: partnerID, User: p},
	}, nil
}
