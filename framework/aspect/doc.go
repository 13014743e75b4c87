// Package aspect routes method calls through ordered chains of interceptors.
//
// A RootMethod wraps the real body of a method. An ExecutionChain runs a list
// of Handlers in front of it; each handler decides whether to call
// ctx.Proceed() and so continue towards the body, or to return early:
//
//	logging := aspect.NewHandler(0, func(ctx *aspect.ExecutionContext) (any, error) {
//	    logger.Info("enter", zap.Stringer("method", ctx.Method()))
//	    res, err := ctx.Proceed()
//	    logger.Info("exit", zap.Error(err))
//	    return res, err
//	})
//
//	chains := aspect.NewChainRegistry(aspect.StaticHandlers(logging, security))
//	chain, _ := chains.GetExecutionChain(render)
//	out, err := chain.Execute(aspect.NewParameters().With("scale", 2))
//
// Chains are built once per RootMethod from the handlers whose AppliesTo
// accepts it, sorted by Order, and cached by the ChainRegistry. They may be
// modified afterwards with Prepend, Append and SetHandlers; calls already
// running keep the handler list they started with.
package aspect
