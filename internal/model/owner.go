package model

// OwnerRef 购物车/订单归属：user_id 与 guest_token 有且仅有其一
// 引擎只把它当作不透明的归属键，具体身份由上游解析
type OwnerRef struct {
	UserID     *int64
	GuestToken *string
}

func UserOwner(userID int64) OwnerRef { return OwnerRef{UserID: &userID} }

func GuestOwner(token string) OwnerRef { return OwnerRef{GuestToken: &token} }

// Valid 校验归属引用恰好携带一种身份
func (o OwnerRef) Valid() bool {
	return (o.UserID != nil) != (o.GuestToken != nil && *o.GuestToken != "")
}
