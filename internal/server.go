package internal

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"datatrans/config"
	"datatrans/entity"
	"datatrans/services"
)

const (
	checkoutOrder = "/checkout/:order_id"
	paymentReturn = "/return/:result"
	paymentNotify = "/notify"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	payments   services.Payments
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf: conf,
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.POST(checkoutOrder, s.checkout)
	router.POST(paymentReturn, s.paymentReturn)
	router.GET(paymentReturn, s.paymentReturn)
	router.POST(paymentNotify, s.paymentNotify)
}

func (s *Server) SetPaymentsService(payments services.Payments) {
	s.payments = payments
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

// checkout builds the signed redirect request for an order. The response
// carries the target service URL and the POST fields; the host renders them
// as an auto-submitting form.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	orderID := ps.ByName("order_id")
	if orderID == "" {
		s.logger.Warn(fmt.Sprintf("[%s] checkout: empty order id", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var order entity.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] checkout: decode request body: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	order.ID = orderID

	request, err := s.payments.BuildRedirect(ctx, &order)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] checkout order %s", reqID, orderID), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"service_url": request.ServiceURL,
		"fields":      request.FormValues(),
	}
	if err = json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] checkout: encode response", reqID), err)
	}
}

// paymentReturn handles the browser redirect back from the gateway. The
// result segment of the URL only routes; the callback's own status field
// decides the outcome. The customer ends up on the resume-checkout page for a
// recorded payment, on the failure page otherwise.
func (s *Server) paymentReturn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] payment return: parse form: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result := s.payments.ProcessCallback(ctx, entity.KindReturn, r.Form)
	s.logger.Info(fmt.Sprintf("[%s] payment return processed: %s", reqID, result.Outcome))

	if result.Outcome.Rejected() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if result.RedirectURL != "" {
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// paymentNotify handles the server-to-server callback. Delivery is at least
// once; processing is idempotent per reference number. Rejections answer with
// a bare 400, everything accepted is acknowledged with 200.
func (s *Server) paymentNotify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] payment notify: parse form: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result := s.payments.ProcessCallback(ctx, entity.KindNotify, r.Form)
	s.logger.Info(fmt.Sprintf("[%s] payment notify processed: %s", reqID, result.Outcome))

	if result.Outcome.Rejected() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}
