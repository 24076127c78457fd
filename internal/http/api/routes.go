package api

import (
	v1Controllers "github.com/opensignal/signalhub/internal/http/api/controllers/v1"
	v1FriendsControllers "github.com/opensignal/signalhub/internal/http/api/controllers/v1/friends"
	v1HousesControllers "github.com/opensignal/signalhub/internal/http/api/controllers/v1/houses"
	v1ServersControllers "github.com/opensignal/signalhub/internal/http/api/controllers/v1/servers"
	v1StatusControllers "github.com/opensignal/signalhub/internal/http/api/controllers/v1/status"
	"github.com/opensignal/signalhub/internal/http/api/middleware"
	"github.com/gin-gonic/gin"
)

// ApplyRoutes mounts the REST surface. WebSocket routes are mounted
// separately by the caller, since they run through a different upgrade
// path than gin's normal handler chain.
func ApplyRoutes(router *gin.Engine, friendAPISecret string, ratelimit gin.HandlerFunc) {
	apiGroup := router.Group("/api")
	apiGroup.Use(ratelimit)

	apiGroup.GET("/status", v1StatusControllers.GETStatus)
	apiGroup.GET("/ping", v1Controllers.GETPing)
	apiGroup.GET("/version", v1Controllers.GETVersion)

	servers := apiGroup.Group("/servers/:signing_pubkey")
	servers.POST("/register", v1ServersControllers.POSTRegisterHint)
	servers.GET("/hint", v1ServersControllers.GETHint)
	servers.POST("/invites", v1ServersControllers.POSTCreateInvite)
	servers.POST("/events", v1ServersControllers.POSTInsertEvent)
	servers.GET("/events", v1ServersControllers.GETEvents)
	servers.POST("/events/ack", v1ServersControllers.POSTAckEvents)
	servers.POST("/ack", v1ServersControllers.POSTAckEvents)

	invites := apiGroup.Group("/invites/:code")
	invites.GET("", v1ServersControllers.GETInvite)
	invites.POST("/redeem", v1ServersControllers.POSTRedeemInvite)
	invites.POST("/revoke", v1ServersControllers.POSTRevokeInvite)

	houses := apiGroup.Group("/houses/:signing_pubkey/hint")
	houses.GET("", v1HousesControllers.GETHint)
	houses.PUT("", v1HousesControllers.PUTHint)

	friendAuth := middleware.FriendAuth(friendAPISecret)
	friendsGroup := apiGroup.Group("/friends")
	friendsGroup.Use(friendAuth)
	friendsGroup.POST("/requests", v1FriendsControllers.POSTSendRequest)
	friendsGroup.POST("/accept", v1FriendsControllers.POSTAcceptRequest)
	friendsGroup.POST("/decline", v1FriendsControllers.POSTDeclineRequest)
	friendsGroup.POST("/codes", v1FriendsControllers.POSTCreateCode)
	friendsGroup.POST("/revoke", v1FriendsControllers.POSTRevokeCode)
	friendsGroup.POST("/redeem", v1FriendsControllers.POSTRedeemCode)
	friendsGroup.POST("/redemptions/accept", v1FriendsControllers.POSTAcceptRedemption)
	friendsGroup.POST("/redemptions/decline", v1FriendsControllers.POSTDeclineRedemption)
}
