package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// These constants are the fully-qualified names of the services.
const (
	AuthServiceName    = "settlewise.v1.AuthService"
	GroupServiceName   = "settlewise.v1.GroupService"
	BillServiceName    = "settlewise.v1.BillService"
	SummaryServiceName = "settlewise.v1.SummaryService"
)

// These constants are the fully-qualified names of the RPCs, set as the
// Spec.Procedure field of requests and used to route them.
const (
	AuthServiceRegisterProcedure            = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure               = "/" + AuthServiceName + "/Login"
	AuthServiceMeProcedure                  = "/" + AuthServiceName + "/Me"
	GroupServiceCreateGroupProcedure        = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure           = "/" + GroupServiceName + "/GetGroup"
	GroupServiceAddMemberProcedure          = "/" + GroupServiceName + "/AddMember"
	BillServiceCreateBillProcedure          = "/" + BillServiceName + "/CreateBill"
	BillServiceUpdateBillProcedure          = "/" + BillServiceName + "/UpdateBill"
	BillServiceDeleteBillProcedure          = "/" + BillServiceName + "/DeleteBill"
	BillServiceGetBillProcedure             = "/" + BillServiceName + "/GetBill"
	BillServiceListGroupBillsProcedure      = "/" + BillServiceName + "/ListGroupBills"
	BillServiceListUserBillsProcedure       = "/" + BillServiceName + "/ListUserBills"
	BillServiceMarkSharePaidProcedure       = "/" + BillServiceName + "/MarkSharePaid"
	BillServiceMarkShareUnpaidProcedure     = "/" + BillServiceName + "/MarkShareUnpaid"
	BillServiceSettleUpProcedure            = "/" + BillServiceName + "/SettleUp"
	BillServiceSimplifiedDebtsProcedure     = "/" + BillServiceName + "/SimplifiedDebts"
	SummaryServiceGetSummaryProcedure       = "/" + SummaryServiceName + "/GetSummary"
	SummaryServiceGetGroupBalancesProcedure = "/" + SummaryServiceName + "/GetGroupBalances"
)

// PublicProcedures can be called without a session token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}

// AuthServiceHandler is the server side of the AuthService.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	Me(context.Context, *connect.Request[MeRequest]) (*connect.Response[MeResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	routes := map[string]http.Handler{
		AuthServiceRegisterProcedure: connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...),
		AuthServiceLoginProcedure:    connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
		AuthServiceMeProcedure:       connect.NewUnaryHandler(AuthServiceMeProcedure, svc.Me, opts...),
	}
	return "/" + AuthServiceName + "/", route(routes)
}

// AuthServiceClient is a client for the AuthService.
type AuthServiceClient interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	Me(context.Context, *connect.Request[MeRequest]) (*connect.Response[MeResponse], error)
}

type authServiceClient struct {
	register *connect.Client[RegisterRequest, AuthResponse]
	login    *connect.Client[LoginRequest, AuthResponse]
	me       *connect.Client[MeRequest, MeResponse]
}

// NewAuthServiceClient constructs a client for the AuthService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &authServiceClient{
		register: connect.NewClient[RegisterRequest, AuthResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:    connect.NewClient[LoginRequest, AuthResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		me:       connect.NewClient[MeRequest, MeResponse](httpClient, baseURL+AuthServiceMeProcedure, opts...),
	}
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) Me(ctx context.Context, req *connect.Request[MeRequest]) (*connect.Response[MeResponse], error) {
	return c.me.CallUnary(ctx, req)
}

// GroupServiceHandler is the server side of the GroupService.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[GroupResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	routes := map[string]http.Handler{
		GroupServiceCreateGroupProcedure: connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:    connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceAddMemberProcedure:   connect.NewUnaryHandler(GroupServiceAddMemberProcedure, svc.AddMember, opts...),
	}
	return "/" + GroupServiceName + "/", route(routes)
}

// GroupServiceClient is a client for the GroupService.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[GroupResponse], error)
}

type groupServiceClient struct {
	createGroup *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup    *connect.Client[GetGroupRequest, GroupResponse]
	addMember   *connect.Client[AddMemberRequest, GroupResponse]
}

// NewGroupServiceClient constructs a client for the GroupService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &groupServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:    connect.NewClient[GetGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		addMember:   connect.NewClient[AddMemberRequest, GroupResponse](httpClient, baseURL+GroupServiceAddMemberProcedure, opts...),
	}
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[GroupResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

// BillServiceHandler is the server side of the BillService.
type BillServiceHandler interface {
	CreateBill(context.Context, *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error)
	UpdateBill(context.Context, *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error)
	DeleteBill(context.Context, *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error)
	GetBill(context.Context, *connect.Request[GetBillRequest]) (*connect.Response[BillResponse], error)
	ListGroupBills(context.Context, *connect.Request[ListGroupBillsRequest]) (*connect.Response[BillPageResponse], error)
	ListUserBills(context.Context, *connect.Request[ListUserBillsRequest]) (*connect.Response[BillPageResponse], error)
	MarkSharePaid(context.Context, *connect.Request[ShareRequest]) (*connect.Response[ShareResponse], error)
	MarkShareUnpaid(context.Context, *connect.Request[ShareRequest]) (*connect.Response[ShareResponse], error)
	SettleUp(context.Context, *connect.Request[SettleUpRequest]) (*connect.Response[SettleUpResponse], error)
	SimplifiedDebts(context.Context, *connect.Request[SimplifiedDebtsRequest]) (*connect.Response[SimplifiedDebtsResponse], error)
}

// NewBillServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewBillServiceHandler(svc BillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	routes := map[string]http.Handler{
		BillServiceCreateBillProcedure:      connect.NewUnaryHandler(BillServiceCreateBillProcedure, svc.CreateBill, opts...),
		BillServiceUpdateBillProcedure:      connect.NewUnaryHandler(BillServiceUpdateBillProcedure, svc.UpdateBill, opts...),
		BillServiceDeleteBillProcedure:      connect.NewUnaryHandler(BillServiceDeleteBillProcedure, svc.DeleteBill, opts...),
		BillServiceGetBillProcedure:         connect.NewUnaryHandler(BillServiceGetBillProcedure, svc.GetBill, opts...),
		BillServiceListGroupBillsProcedure:  connect.NewUnaryHandler(BillServiceListGroupBillsProcedure, svc.ListGroupBills, opts...),
		BillServiceListUserBillsProcedure:   connect.NewUnaryHandler(BillServiceListUserBillsProcedure, svc.ListUserBills, opts...),
		BillServiceMarkSharePaidProcedure:   connect.NewUnaryHandler(BillServiceMarkSharePaidProcedure, svc.MarkSharePaid, opts...),
		BillServiceMarkShareUnpaidProcedure: connect.NewUnaryHandler(BillServiceMarkShareUnpaidProcedure, svc.MarkShareUnpaid, opts...),
		BillServiceSettleUpProcedure:        connect.NewUnaryHandler(BillServiceSettleUpProcedure, svc.SettleUp, opts...),
		BillServiceSimplifiedDebtsProcedure: connect.NewUnaryHandler(BillServiceSimplifiedDebtsProcedure, svc.SimplifiedDebts, opts...),
	}
	return "/" + BillServiceName + "/", route(routes)
}

// BillServiceClient is a client for the BillService.
type BillServiceClient interface {
	CreateBill(context.Context, *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error)
	UpdateBill(context.Context, *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error)
	DeleteBill(context.Context, *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error)
	GetBill(context.Context, *connect.Request[GetBillRequest]) (*connect.Response[BillResponse], error)
	ListGroupBills(context.Context, *connect.Request[ListGroupBillsRequest]) (*connect.Response[BillPageResponse], error)
	ListUserBills(context.Context, *connect.Request[ListUserBillsRequest]) (*connect.Response[BillPageResponse], error)
	MarkSharePaid(context.Context, *connect.Request[ShareRequest]) (*connect.Response[ShareResponse], error)
	MarkShareUnpaid(context.Context, *connect.Request[ShareRequest]) (*connect.Response[ShareResponse], error)
	SettleUp(context.Context, *connect.Request[SettleUpRequest]) (*connect.Response[SettleUpResponse], error)
	SimplifiedDebts(context.Context, *connect.Request[SimplifiedDebtsRequest]) (*connect.Response[SimplifiedDebtsResponse], error)
}

type billServiceClient struct {
	createBill      *connect.Client[CreateBillRequest, BillResponse]
	updateBill      *connect.Client[UpdateBillRequest, BillResponse]
	deleteBill      *connect.Client[DeleteBillRequest, DeleteBillResponse]
	getBill         *connect.Client[GetBillRequest, BillResponse]
	listGroupBills  *connect.Client[ListGroupBillsRequest, BillPageResponse]
	listUserBills   *connect.Client[ListUserBillsRequest, BillPageResponse]
	markSharePaid   *connect.Client[ShareRequest, ShareResponse]
	markShareUnpaid *connect.Client[ShareRequest, ShareResponse]
	settleUp        *connect.Client[SettleUpRequest, SettleUpResponse]
	simplifiedDebts *connect.Client[SimplifiedDebtsRequest, SimplifiedDebtsResponse]
}

// NewBillServiceClient constructs a client for the BillService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) BillServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &billServiceClient{
		createBill:      connect.NewClient[CreateBillRequest, BillResponse](httpClient, baseURL+BillServiceCreateBillProcedure, opts...),
		updateBill:      connect.NewClient[UpdateBillRequest, BillResponse](httpClient, baseURL+BillServiceUpdateBillProcedure, opts...),
		deleteBill:      connect.NewClient[DeleteBillRequest, DeleteBillResponse](httpClient, baseURL+BillServiceDeleteBillProcedure, opts...),
		getBill:         connect.NewClient[GetBillRequest, BillResponse](httpClient, baseURL+BillServiceGetBillProcedure, opts...),
		listGroupBills:  connect.NewClient[ListGroupBillsRequest, BillPageResponse](httpClient, baseURL+BillServiceListGroupBillsProcedure, opts...),
		listUserBills:   connect.NewClient[ListUserBillsRequest, BillPageResponse](httpClient, baseURL+BillServiceListUserBillsProcedure, opts...),
		markSharePaid:   connect.NewClient[ShareRequest, ShareResponse](httpClient, baseURL+BillServiceMarkSharePaidProcedure, opts...),
		markShareUnpaid: connect.NewClient[ShareRequest, ShareResponse](httpClient, baseURL+BillServiceMarkShareUnpaidProcedure, opts...),
		settleUp:        connect.NewClient[SettleUpRequest, SettleUpResponse](httpClient, baseURL+BillServiceSettleUpProcedure, opts...),
		simplifiedDebts: connect.NewClient[SimplifiedDebtsRequest, SimplifiedDebtsResponse](httpClient, baseURL+BillServiceSimplifiedDebtsProcedure, opts...),
	}
}

func (c *billServiceClient) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error) {
	return c.createBill.CallUnary(ctx, req)
}

func (c *billServiceClient) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[BillResponse], error) {
	return c.updateBill.CallUnary(ctx, req)
}

func (c *billServiceClient) DeleteBill(ctx context.Context, req *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error) {
	return c.deleteBill.CallUnary(ctx, req)
}

func (c *billServiceClient) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[BillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *billServiceClient) ListGroupBills(ctx context.Context, req *connect.Request[ListGroupBillsRequest]) (*connect.Response[BillPageResponse], error) {
	return c.listGroupBills.CallUnary(ctx, req)
}

func (c *billServiceClient) ListUserBills(ctx context.Context, req *connect.Request[ListUserBillsRequest]) (*connect.Response[BillPageResponse], error) {
	return c.listUserBills.CallUnary(ctx, req)
}

func (c *billServiceClient) MarkSharePaid(ctx context.Context, req *connect.Request[ShareRequest]) (*connect.Response[ShareResponse], error) {
	return c.markSharePaid.CallUnary(ctx, req)
}

func (c *billServiceClient) MarkShareUnpaid(ctx context.Context, req *connect.Request[ShareRequest]) (*connect.Response[ShareResponse], error) {
	return c.markShareUnpaid.CallUnary(ctx, req)
}

func (c *billServiceClient) SettleUp(ctx context.Context, req *connect.Request[SettleUpRequest]) (*connect.Response[SettleUpResponse], error) {
	return c.settleUp.CallUnary(ctx, req)
}

func (c *billServiceClient) SimplifiedDebts(ctx context.Context, req *connect.Request[SimplifiedDebtsRequest]) (*connect.Response[SimplifiedDebtsResponse], error) {
	return c.simplifiedDebts.CallUnary(ctx, req)
}

// SummaryServiceHandler is the server side of the SummaryService.
type SummaryServiceHandler interface {
	GetSummary(context.Context, *connect.Request[SummaryRequest]) (*connect.Response[SummaryResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error)
}

// NewSummaryServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewSummaryServiceHandler(svc SummaryServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	routes := map[string]http.Handler{
		SummaryServiceGetSummaryProcedure:       connect.NewUnaryHandler(SummaryServiceGetSummaryProcedure, svc.GetSummary, opts...),
		SummaryServiceGetGroupBalancesProcedure: connect.NewUnaryHandler(SummaryServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...),
	}
	return "/" + SummaryServiceName + "/", route(routes)
}

// SummaryServiceClient is a client for the SummaryService.
type SummaryServiceClient interface {
	GetSummary(context.Context, *connect.Request[SummaryRequest]) (*connect.Response[SummaryResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error)
}

type summaryServiceClient struct {
	getSummary       *connect.Client[SummaryRequest, SummaryResponse]
	getGroupBalances *connect.Client[GroupBalancesRequest, GroupBalancesResponse]
}

// NewSummaryServiceClient constructs a client for the SummaryService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewSummaryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SummaryServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &summaryServiceClient{
		getSummary:       connect.NewClient[SummaryRequest, SummaryResponse](httpClient, baseURL+SummaryServiceGetSummaryProcedure, opts...),
		getGroupBalances: connect.NewClient[GroupBalancesRequest, GroupBalancesResponse](httpClient, baseURL+SummaryServiceGetGroupBalancesProcedure, opts...),
	}
}

func (c *summaryServiceClient) GetSummary(ctx context.Context, req *connect.Request[SummaryRequest]) (*connect.Response[SummaryResponse], error) {
	return c.getSummary.CallUnary(ctx, req)
}

func (c *summaryServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func route(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
